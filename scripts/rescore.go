// 手动触发成绩重算脚本
//
// 正常运行中成绩随提交与人工批改实时计算。此脚本用于排查数据漂移：
// 按每次作答的结果行重算总分与通过判定，与存量数据不一致时修正并打印。
//
// 用法: go run scripts/rescore.go

package main

import (
	"log"
	"os"

	"quiz_grading_backend/internal/config"
	"quiz_grading_backend/internal/model"
	"quiz_grading_backend/internal/service"
	"quiz_grading_backend/pkg/database"
	"quiz_grading_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	var attempts []model.Attempt
	if err := db.Find(&attempts).Error; err != nil {
		log.Fatalf("读取作答失败: %v", err)
	}

	fixed := 0
	for i := range attempts {
		attempt := &attempts[i]

		var quiz model.Quiz
		if err := db.First(&quiz, attempt.QuizID).Error; err != nil {
			log.Printf("作答 %d: 测验 %d 不存在，跳过", attempt.ID, attempt.QuizID)
			continue
		}
		var results []model.AttemptResult
		if err := db.Where("attempt_id = ?", attempt.ID).Find(&results).Error; err != nil {
			log.Printf("作答 %d: 读取结果失败: %v", attempt.ID, err)
			continue
		}

		verdict := service.ScoreAttempt(results, quiz.PassingScorePercent)
		if verdict.Score == attempt.Score && verdict.TotalPoints == attempt.TotalPoints && samePassed(verdict.Passed, attempt.Passed) {
			continue
		}

		log.Printf("作答 %d 漂移: score %d->%d, total %d->%d",
			attempt.ID, attempt.Score, verdict.Score, attempt.TotalPoints, verdict.TotalPoints)
		service.ApplyVerdict(attempt, verdict)
		if err := db.Model(&model.Attempt{}).Where("id = ?", attempt.ID).Updates(map[string]interface{}{
			"score":        attempt.Score,
			"total_points": attempt.TotalPoints,
			"passed":       attempt.Passed,
			"status":       attempt.Status,
		}).Error; err != nil {
			log.Printf("作答 %d: 修正失败: %v", attempt.ID, err)
			continue
		}
		fixed++
	}

	log.Printf("完成，共修正 %d 条作答", fixed)
}

func samePassed(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
