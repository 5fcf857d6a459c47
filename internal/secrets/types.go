// Package secrets detects exposed credentials (API keys, tokens, private
// keys) in the files staged for commit, using builtin patterns with
// entropy analysis and a TOML allowlist for suppressions.
package secrets

// SecretType identifies the kind of secret detected.
type SecretType string

const (
	SecretTypeAWSAccessKey  SecretType = "aws_access_key"
	SecretTypeAWSSecretKey  SecretType = "aws_secret_key"
	SecretTypeGitHubPAT     SecretType = "github_pat"
	SecretTypeGitHubOAuth   SecretType = "github_oauth"
	SecretTypeStripeLiveKey SecretType = "stripe_live_key"
	SecretTypeSlackBotToken SecretType = "slack_bot_token"
	SecretTypeSlackWebhook  SecretType = "slack_webhook"
	SecretTypePrivateKey    SecretType = "private_key"
	SecretTypeGoogleAPIKey  SecretType = "google_api_key"
	SecretTypeNPMToken      SecretType = "npm_token"
	SecretTypeJWT           SecretType = "jwt"
	SecretTypeGenericAPIKey SecretType = "generic_api_key"
	SecretTypePasswordInURL SecretType = "password_in_url"
)

// Severity indicates the risk level of a finding.
type Severity string

const (
	SeverityCritical Severity = "critical" // active production credentials, private keys
	SeverityHigh     Severity = "high"     // API keys, tokens with significant access
	SeverityMedium   Severity = "medium"   // possible secrets, need verification
	SeverityLow      Severity = "low"      // test keys, example values
)

// Weight returns a numeric weight for sorting.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Finding represents a single detected secret.
type Finding struct {
	File       string     `json:"file"`
	Line       int        `json:"line"`
	Column     int        `json:"column,omitempty"`
	Type       SecretType `json:"type"`
	Severity   Severity   `json:"severity"`
	Match      string     `json:"match"` // redacted
	RawMatch   string     `json:"-"`     // never serialized
	Rule       string     `json:"rule"`
	Confidence float64    `json:"confidence"`
}
