package gcal

// Config holds configuration for the Google Calendar client.
type Config struct {
	// CredentialsFile is a service account key or an OAuth client secret.
	CredentialsFile string `mapstructure:"credentials_file" default:"secrets/credentials.json"`
	// TokenFile stores the OAuth token written by the auth command.
	TokenFile string `mapstructure:"token_file" default:"secrets/token.json"`
	// Endpoint overrides the API root.
	Endpoint string `mapstructure:"endpoint" default:""`
	// MaxResults is the page size of listings.
	MaxResults int `mapstructure:"max_results" default:"2500"`
}
