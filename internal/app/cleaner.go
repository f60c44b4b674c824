package app

import (
	"context"
	"smartacademy/internal/logger"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type tokenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// ResetTokenCleaner периодически удаляет истёкшие и использованные токены сброса.
type ResetTokenCleaner struct {
	purger  tokenPurger
	cron    *cron.Cron
	spec    string
	timeout time.Duration
}

func NewResetTokenCleaner(purger tokenPurger, spec string) *ResetTokenCleaner {
	if spec == "" {
		spec = "@hourly"
	}
	return &ResetTokenCleaner{
		purger:  purger,
		cron:    cron.New(cron.WithLogger(cron.DiscardLogger)),
		spec:    spec,
		timeout: time.Minute,
	}
}

func (c *ResetTokenCleaner) Start() error {
	if _, err := c.cron.AddFunc(c.spec, func() {
		_, _ = c.RunOnce(context.Background())
	}); err != nil {
		return err
	}
	c.cron.Start()
	logger.Log.Info("Очистка токенов сброса запущена", zap.String("spec", c.spec))
	return nil
}

func (c *ResetTokenCleaner) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	deleted, err := c.purger.PurgeExpired(ctx)
	if err != nil {
		logger.Log.Warn("Очистка токенов сброса не удалась", zap.Error(err))
	}
	return deleted, err
}

// Stop останавливает планировщик и ждёт завершения текущего прогона.
func (c *ResetTokenCleaner) Stop() {
	<-c.cron.Stop().Done()
}
