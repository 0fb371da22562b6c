// The concrete sync jobs. Each job is a declaration: which source, which
// markers and field mappings, which destination table and mode. The run logic
// itself lives in the pipeline package.
package jobs

import (
	"net/url"
	"regexp"

	"finsync/config"
	"finsync/source/web"

	"github.com/jackc/pgx/v4/pgxpool"
)

type Deps struct {
	Pool *pgxpool.Pool
	Cfg  config.Config
}

// refreshViews honors the refresh on/off toggle for the data jobs.
func (d Deps) refreshViews() []string {
	if !d.Cfg.Refresh {
		return nil
	}

	return d.Cfg.Views
}

func newBrokerClient(cfg config.Config) *web.Client {
	return &web.Client{
		BaseURL:   "https://blackterminal.ru",
		LoginPath: "/login",
		LoginForm: url.Values{
			"email":    {cfg.BrokerEmail},
			"password": {cfg.BrokerPassword},
			"login":    {""},
		},
		SessionCookie: "PHPSESSID",
	}
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

func digits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}
