// Package cli holds the plumbing shared by the livestudio command:
// kubectl-style contexts in ~/.livestudio/<app>/config.yaml, API key
// resolution with a .env fallback, result output as YAML or JSON, request
// file loading, and the bordered frame used by the live session TUI.
//
//	cfg, err := cli.LoadConfig("livestudio")
//	ctx, err := cfg.ResolveContext(name)
//	key, err := cli.ResolveAPIKey(ctx)
package cli
