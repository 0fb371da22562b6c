package config

import (
	"net/url"
	"os"
	"strings"
)

// Config carries everything the jobs read from the environment: source
// credentials, destination connection parameters and the view refresh options.
type Config struct {
	// blackterminal account and portfolio export id
	BrokerEmail       string
	BrokerPassword    string
	BrokerPortfolioID string

	// utkonos account
	ShopEmail    string
	ShopPassword string

	// invest API secret token
	InvestToken string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	// directory of exported card operation files
	OperationsDir string

	// materialized views to refresh after a successful run
	Views []string
	// whether the refresh step runs at all
	Refresh bool
}

func FromEnv() Config {
	return Config{
		BrokerEmail:       os.Getenv("BT_EMAIL"),
		BrokerPassword:    os.Getenv("BT_PASSWORD"),
		BrokerPortfolioID: os.Getenv("BT_PORTFOLIO_ID"),

		ShopEmail:    os.Getenv("UTKONOS_EMAIL"),
		ShopPassword: os.Getenv("UTKONOS_PASSWORD"),

		InvestToken: os.Getenv("TINKOFF_SANDBOX_TOKEN"),

		PostgresHost:     getenv("PSQL_HOST", "127.0.0.1"),
		PostgresPort:     getenv("PSQL_PORT", "5432"),
		PostgresUser:     os.Getenv("PSQL_USER"),
		PostgresPassword: os.Getenv("PSQL_PASS"),
		PostgresDB:       getenv("PSQL_DB", "finance"),

		OperationsDir: getenv("OPERATIONS_DIR", "data"),

		Views:   splitList(getenv("REFRESH_VIEWS", "portfolio_performance")),
		Refresh: getenv("REFRESH", "true") != "false",
	}
}

// PostgresURL renders the connection string pgxpool expects.
func (c Config) PostgresURL() string {
	return "postgresql://" + c.PostgresHost + ":" + c.PostgresPort + "/" + c.PostgresDB +
		"?user=" + url.QueryEscape(c.PostgresUser) +
		"&password=" + url.QueryEscape(c.PostgresPassword)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
