package webhook

import (
	"net/http"
	"time"

	"github.com/Kyz7/requestdesk/internal/config"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/sirupsen/logrus"
)

type Options struct {
	URL    string
	Secret string

	Timeout      time.Duration
	MaxAttempts  int
	Backoff      time.Duration
	PollInterval time.Duration
	BatchSize    int

	LastErrorMaxLen int

	Client *http.Client
	Now    func() time.Time
	Logger *logrus.Entry
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		URL:          cfg.WebhookURL,
		Secret:       cfg.WebhookSecret,
		Timeout:      cfg.WebhookTimeout,
		MaxAttempts:  cfg.WebhookMaxAttempts,
		Backoff:      cfg.WebhookBackoff,
		PollInterval: cfg.WebhookPollInterval,
	}
}

func (o *Options) setDefaults() {
	if o.Timeout == 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 3
	}
	if o.Backoff == 0 {
		o.Backoff = 60 * time.Second
	}
	if o.PollInterval == 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.BatchSize == 0 {
		o.BatchSize = 50
	}
	if o.LastErrorMaxLen == 0 {
		o.LastErrorMaxLen = 2048
	}
	if o.Client == nil {
		o.Client = &http.Client{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
}
