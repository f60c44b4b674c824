package services

import (
	"context"
	"smartacademy/internal/logger"
	"smartacademy/internal/metrics"
	"smartacademy/internal/utils"
	"smartacademy/internal/utils/helpers"
	"sync"
	"time"

	"go.uber.org/zap"
)

type MailSender interface {
	Send(to []string, subject, body string) error
	SendHTML(to []string, subject, body string) error
}

type EmailJob struct {
	To      []string
	Subject string
	Body    string
	IsHTML  bool
	// OnError вызывается воркером, если письмо не ушло.
	OnError func(err error)
}

// Mailer — очередь писем с пулом воркеров. Запрос никогда не ждёт SMTP.
type Mailer struct {
	sender   MailSender
	queue    chan EmailJob
	resetTTL time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewMailer(sender MailSender, queueSize int, resetTTL time.Duration) *Mailer {
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Mailer{
		sender:   sender,
		queue:    make(chan EmailJob, queueSize),
		resetTTL: resetTTL,
	}
}

func (m *Mailer) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
}

func (m *Mailer) worker() {
	defer m.wg.Done()
	for job := range m.queue {
		var err error
		if job.IsHTML {
			err = m.sender.SendHTML(job.To, job.Subject, job.Body)
		} else {
			err = m.sender.Send(job.To, job.Subject, job.Body)
		}
		if err != nil {
			metrics.EmailJobs.WithLabelValues("failed").Inc()
			logger.Log.Error("Не удалось отправить письмо", zap.String("subject", job.Subject), zap.Error(err))
			if job.OnError != nil {
				job.OnError(err)
			}
			continue
		}
		metrics.EmailJobs.WithLabelValues("sent").Inc()
	}
}

// Enqueue не блокирует: при переполненной очереди письмо отбрасывается.
func (m *Mailer) Enqueue(job EmailJob) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrMailerClosed
	}
	select {
	case m.queue <- job:
		metrics.EmailJobs.WithLabelValues("queued").Inc()
		return nil
	default:
		metrics.EmailJobs.WithLabelValues("dropped").Inc()
		return ErrMailQueueFull
	}
}

// Close закрывает очередь и дожидается, пока воркеры отправят остаток.
func (m *Mailer) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()
	m.wg.Wait()
}

// SendPasswordReset ставит письмо со ссылкой сброса в очередь. Если доставка
// позже сорвётся, ссылка попадёт в лог — запасной канал для операторов.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, resetLink string) error {
	masked := utils.MaskEmail(to)
	return m.Enqueue(EmailJob{
		To:      []string{to},
		Subject: "Восстановление пароля — Smart Learning Academy",
		Body:    helpers.BuildPasswordResetHTML(resetLink, m.resetTTL),
		IsHTML:  true,
		OnError: func(err error) {
			logger.Log.Warn("Письмо сброса не доставлено, ссылка для оператора",
				zap.String("email_masked", masked),
				zap.String("reset_link", resetLink),
				zap.Error(err),
			)
		},
	})
}

func (m *Mailer) SendPasswordChanged(ctx context.Context, to string, changedAt time.Time) error {
	return m.Enqueue(EmailJob{
		To:      []string{to},
		Subject: "Пароль изменён — Smart Learning Academy",
		Body:    helpers.BuildPasswordChangedHTML(changedAt),
		IsHTML:  true,
	})
}
