package main

import (
	"github.com/aretw0/daydream/internal/cli"
	"github.com/spf13/cobra"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run the LLM proxy",
	Long: `Forwards chat-completion requests from browsers to the upstream provider,
adding the API key server-side. Requests must carry the X-API-Token header
and are rate limited per minute.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Proxy.Addr = addr
		}
		logger, err := cli.NewLogger(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()
		return cli.RunProxy(sigCtx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(proxyCmd)
	proxyCmd.Flags().StringP("addr", "a", "", "Address to listen on (default :10000)")
}
