package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	NATS      NATSConfig      `yaml:"nats"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Builder   BuilderConfig   `yaml:"builder"`
	Signer    SignerConfig    `yaml:"signer"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Auth      AuthConfig      `yaml:"auth"`
	Admin     AdminConfig     `yaml:"admin"`
	CORS      CORSConfig      `yaml:"cors"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig NATS message server configuration
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`
	ReconnectWait int    `yaml:"reconnect_wait"`
	MaxReconnects int    `yaml:"max_reconnects"`
	Enabled       bool   `yaml:"enabled"`
}

// BridgeConfig source-chain bridge configuration. These values seed the
// persistent config store on first startup; at runtime every operation reads
// them back from the store, not from this struct.
type BridgeConfig struct {
	SuiPackageID     string `yaml:"suiPackageId"`
	SuiModuleID      string `yaml:"suiModuleId"`
	LedgerID         string `yaml:"ledgerId"`         // custodial ledger identifier
	MinterAccount    string `yaml:"minterAccount"`    // bridge custody account on the ledger
	LocalMgmtID      string `yaml:"localMgmtId"`      // local signer identity (development)
	IsLocal          bool   `yaml:"isLocal"`          // true => testnet RPC endpoint
	TestnetRPCURL    string `yaml:"testnetRpcUrl"`
	MainnetRPCURL    string `yaml:"mainnetRpcUrl"`
	EventPageSize    int    `yaml:"eventPageSize"`    // page size for cursor-less polls
	CursorPageSize   int    `yaml:"cursorPageSize"`   // page size once a cursor exists
	ResponseEstimate int    `yaml:"responseEstimate"` // expected RPC response body size in bytes
}

// BuilderConfig off-host transaction builder service configuration
type BuilderConfig struct {
	APIURL      string `yaml:"apiUrl"`      // Host header value
	TxDigestURL string `yaml:"txDigestUrl"` // build endpoint
	Timeout     int    `yaml:"timeout"`     // request timeout (seconds)
}

// SignerConfig threshold signing service configuration
type SignerConfig struct {
	ServiceURL     string   `yaml:"serviceUrl"`
	AuthToken      string   `yaml:"authToken"`
	KeyName        string   `yaml:"keyName"` // e.g. dfx_test_key, test_key_1, key_1
	DerivationPath []string `yaml:"derivationPath"`
	Timeout        int      `yaml:"timeout"`
}

// LedgerConfig custodial ledger service configuration
type LedgerConfig struct {
	ServiceURL string `yaml:"serviceUrl"`
	Timeout    int    `yaml:"timeout"`
}

// SchedulerConfig timer configuration
type SchedulerConfig struct {
	PollInterval int `yaml:"pollInterval"` // mint poll interval (seconds), default 60
}

// AuthConfig withdraw API authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
	Issuer    string `yaml:"issuer"`
}

// AdminConfig admin API access control configuration
type AdminConfig struct {
	AllowedIPs []string `yaml:"allowedIPs"` // IP addresses or CIDR ranges
	TOTPSecret string   `yaml:"totpSecret"` // shared secret for admin TOTP codes
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge"`
}

var AppConfig *Config

// LoadConfig loads the configuration file and applies environment overrides.
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			log.Printf("🔧 Using local configuration file: config.local.yaml")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	fmt.Printf("✅ [%s] Loading configuration from: %s\n", time.Now().Format("2006-01-02 15:04:05"), configPath)

	overrideFromEnv(&config)
	applyDefaults(&config)

	AppConfig = &config
	return nil
}

// overrideFromEnv applies environment variable overrides on top of the file.
func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}
	if natsTimeout := os.Getenv("NATS_TIMEOUT"); natsTimeout != "" {
		if t, err := strconv.Atoi(natsTimeout); err == nil {
			config.NATS.Timeout = t
		}
	}

	if packageID := os.Getenv("SUI_PACKAGE_ID"); packageID != "" {
		config.Bridge.SuiPackageID = packageID
	}
	if moduleID := os.Getenv("SUI_MODULE_ID"); moduleID != "" {
		config.Bridge.SuiModuleID = moduleID
	}
	if ledgerID := os.Getenv("LEDGER_ID"); ledgerID != "" {
		config.Bridge.LedgerID = ledgerID
	}
	if minter := os.Getenv("MINTER_ACCOUNT"); minter != "" {
		config.Bridge.MinterAccount = minter
	}
	if isLocal := os.Getenv("BRIDGE_IS_LOCAL"); isLocal != "" {
		config.Bridge.IsLocal = isLocal == "true"
	}
	if rpcURL := os.Getenv("SUI_TESTNET_RPC_URL"); rpcURL != "" {
		config.Bridge.TestnetRPCURL = rpcURL
	}
	if rpcURL := os.Getenv("SUI_MAINNET_RPC_URL"); rpcURL != "" {
		config.Bridge.MainnetRPCURL = rpcURL
	}

	if builderURL := os.Getenv("TX_DIGEST_URL"); builderURL != "" {
		config.Builder.TxDigestURL = builderURL
	}
	if apiURL := os.Getenv("BUILDER_API_URL"); apiURL != "" {
		config.Builder.APIURL = apiURL
	}

	if signerURL := os.Getenv("SIGNER_SERVICE_URL"); signerURL != "" {
		config.Signer.ServiceURL = signerURL
	}
	if signerToken := os.Getenv("SIGNER_AUTH_TOKEN"); signerToken != "" {
		config.Signer.AuthToken = signerToken
	}
	if keyName := os.Getenv("SIGNER_KEY_NAME"); keyName != "" {
		config.Signer.KeyName = keyName
	}

	if ledgerURL := os.Getenv("LEDGER_SERVICE_URL"); ledgerURL != "" {
		config.Ledger.ServiceURL = ledgerURL
	}

	if interval := os.Getenv("POLL_INTERVAL"); interval != "" {
		if v, err := strconv.Atoi(interval); err == nil {
			config.Scheduler.PollInterval = v
		}
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if totp := os.Getenv("ADMIN_TOTP_SECRET"); totp != "" {
		config.Admin.TOTPSecret = totp
	}

	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		origins := strings.Split(corsOrigins, ",")
		config.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				config.CORS.AllowedOrigins = append(config.CORS.AllowedOrigins, trimmed)
			}
		}
	}
}

// applyDefaults fills values the file may omit.
func applyDefaults(config *Config) {
	if config.Bridge.TestnetRPCURL == "" {
		config.Bridge.TestnetRPCURL = "https://fullnode.testnet.sui.io:443"
	}
	if config.Bridge.MainnetRPCURL == "" {
		config.Bridge.MainnetRPCURL = "https://fullnode.mainnet.sui.io:443"
	}
	if config.Bridge.EventPageSize <= 0 {
		config.Bridge.EventPageSize = 18000
	}
	if config.Bridge.CursorPageSize <= 0 {
		config.Bridge.CursorPageSize = 2
	}
	if config.Bridge.ResponseEstimate <= 0 {
		config.Bridge.ResponseEstimate = 256
	}
	if config.Scheduler.PollInterval <= 0 {
		config.Scheduler.PollInterval = 60
	}
	if config.Signer.KeyName == "" {
		config.Signer.KeyName = "dfx_test_key"
	}
}
