package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pubquiz-service/internal/config"
	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/importer"
)

// NewImportCmd creates a quiz from a CSV question file without going through
// the HTTP API. It prints the quiz code and the master token; the token is
// shown exactly once and cannot be recovered through any team-facing path.
func NewImportCmd(configPath, dataDir *string) *cobra.Command {
	var (
		file     string
		title    string
		activate bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create a quiz from a CSV file of questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(*configPath, *dataDir, file, title, activate)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CSV file with question,correct[,option...] columns")
	cmd.Flags().StringVar(&title, "title", "", "quiz title")
	cmd.Flags().BoolVar(&activate, "activate", false, "set the quiz active immediately")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func runImport(configPath, dataDirFlag, file, title string, activate bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	dataDir := dataDirFlag
	if dataDir == "" {
		dataDir = cfg.Data.Dir
	}

	service, err := buildService(cfg, dataDir)
	if err != nil {
		return err
	}

	questions, err := importer.ParseFile(file)
	if err != nil {
		return err
	}

	quiz, err := service.CreateQuiz(title, questions)
	if err != nil {
		return err
	}
	if activate {
		if quiz, err = service.UpdateStatus(quiz.Code, domain.StatusActive); err != nil {
			return err
		}
	}

	fmt.Printf("created quiz %s (%d questions, status %s)\n", quiz.Code, len(quiz.Questions), quiz.Status)
	fmt.Printf("master token: %s\n", quiz.MasterToken)
	return nil
}
