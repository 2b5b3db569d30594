package domain

const (
	DefaultMySQLHost = "localhost"
	DefaultMySQLPort = 3306

	DefaultHandshakeTimeoutSeconds    = 30
	DefaultLaunchCommand              = "python3"
	DefaultObservabilityListenAddress = "127.0.0.1:9464"
)

// Environment keys consumed by the connection factory of generated and
// static tool servers.
const (
	EnvMySQLHost     = "MYSQL_HOST"
	EnvMySQLPort     = "MYSQL_PORT"
	EnvMySQLDatabase = "MYSQL_DATABASE"
	EnvMySQLUser     = "MYSQL_USER"
	EnvMySQLPassword = "MYSQL_PASSWORD"
)
