package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Execute запускает корневую команду приложения.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dataset-merger",
		Short:         "Объединение двух таблиц (CSV или xlsx) по ключевым колонкам",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// .env удобен при локальном запуске, его отсутствие не ошибка
			_ = godotenv.Load()
		},
	}
	root.AddCommand(newMergeCmd(), newServeCmd())
	return root
}
