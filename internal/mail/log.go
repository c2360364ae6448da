package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogProvider renders messages and writes them to the log instead of sending them.
type LogProvider struct {
	renderer *Renderer
	log      *zap.Logger
}

func NewLogProvider(renderer *Renderer, log *zap.Logger) *LogProvider {
	return &LogProvider{renderer: renderer, log: log.With(zap.String("component", "mail.log"))}
}

func (p *LogProvider) Send(ctx context.Context, msg Message) error {
	env, err := p.renderer.Render(msg)
	if err != nil {
		return err
	}
	p.log.Info("mail rendered",
		zap.String("to", env.To.Email),
		zap.String("subject", env.Subject),
	)
	p.log.Debug("mail body", zap.String("html", env.HTML))
	return nil
}
