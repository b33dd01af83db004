package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"interview-quiz-service/internal/app"
	"interview-quiz-service/internal/config"
	"interview-quiz-service/internal/dedupe"
	"interview-quiz-service/internal/domain"
	"interview-quiz-service/internal/logger"
)

// seedFile is the YAML layout accepted by the seed command.
//
//	roleId: backend
//	questions:
//	  - text: What is a goroutine?
//	    explanation: ...
//	    answers:
//	      - content: A lightweight thread
//	        isCorrect: true
type seedFile struct {
	RoleID    string            `yaml:"roleId"`
	Questions []domain.Question `yaml:"questions"`
}

// NewSeedCmd imports questions from a YAML file through the duplicate check.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import questions from a YAML file, skipping duplicates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()

			if cfg.Postgres.URL == "" && cfg.SQLite.Path == "" {
				return fmt.Errorf("seed needs postgres.url or sqlite.path")
			}
			if cfg.Postgres.URL != "" {
				if err := runMigrationsWithConfig(cmd.Context(), cfg, log); err != nil {
					return err
				}
			}

			req, err := readSeedFile(file)
			if err != nil {
				return err
			}

			st, err := openStores(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer st.close()

			detector := dedupe.New(dedupe.WithThreshold(cfg.Dedupe.Threshold), dedupe.WithLimit(cfg.Dedupe.MaxMatches))
			svc := app.NewQuestionService(st.questionRepository(cfg), detector, 0, log)
			result, err := svc.ImportBatch(cmd.Context(), req)
			if errors.Is(err, domain.ErrBatchRejected) {
				log.Warn("nothing new to seed", "skipped", len(result.Skipped))
				return nil
			}
			if err != nil {
				return err
			}
			for _, s := range result.Skipped {
				log.Info("seed entry skipped", "index", s.Index, "reason", s.Reason)
			}
			log.Info("seed complete", "accepted", len(result.Accepted), "skipped", len(result.Skipped))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "config/questions.yaml", "YAML question file")
	return cmd
}

func readSeedFile(path string) (app.ImportRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return app.ImportRequest{}, err
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return app.ImportRequest{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Questions) == 0 {
		return app.ImportRequest{}, fmt.Errorf("%s has no questions", path)
	}
	return app.ImportRequest{RoleID: f.RoleID, Questions: f.Questions}, nil
}
