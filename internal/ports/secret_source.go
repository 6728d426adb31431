package ports

import "context"

// SecretSource resolves credentials that should not live in config files,
// such as the Telegram bot token and the OpenRouter API key.
type SecretSource interface {
	Get(ctx context.Context, key string) (string, error)
}
