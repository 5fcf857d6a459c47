package secrets

import "regexp"

// Pattern defines a secret detection pattern.
type Pattern struct {
	Name        string
	Type        SecretType
	Severity    Severity
	Regex       *regexp.Regexp
	MinEntropy  float64 // minimum entropy of the capture (0 = disabled)
	Description string
}

// BuiltinPatterns contains all builtin secret detection patterns, based
// on well-known secret formats from various providers.
var BuiltinPatterns = []Pattern{
	{
		Name:        "aws_access_key_id",
		Type:        SecretTypeAWSAccessKey,
		Severity:    SeverityCritical,
		Regex:       regexp.MustCompile(`(?:^|[^A-Z0-9])((?:A3T[A-Z0-9]|AKIA|ABIA|ACCA|AGPA|AIDA|AIPA|ANPA|ANVA|APKA|AROA|ASCA|ASIA)[A-Z0-9]{16})(?:[^A-Z0-9]|$)`),
		Description: "AWS Access Key ID",
	},
	{
		Name:        "aws_secret_key",
		Type:        SecretTypeAWSSecretKey,
		Severity:    SeverityCritical,
		Regex:       regexp.MustCompile(`(?i)(?:aws[_-]?)?secret[_-]?(?:access[_-]?)?key['":\s=]+['"]?([A-Za-z0-9/+=]{40})['"]?`),
		MinEntropy:  3.5,
		Description: "AWS Secret Access Key",
	},
	{
		Name:        "github_pat",
		Type:        SecretTypeGitHubPAT,
		Severity:    SeverityCritical,
		Regex:       regexp.MustCompile(`(ghp_[A-Za-z0-9]{36,})`),
		Description: "GitHub Personal Access Token",
	},
	{
		Name:        "github_fine_grained_pat",
		Type:        SecretTypeGitHubPAT,
		Severity:    SeverityCritical,
		Regex:       regexp.MustCompile(`(github_pat_[A-Za-z0-9_]{80,})`),
		Description: "GitHub Fine-Grained Personal Access Token",
	},
	{
		Name:        "github_oauth",
		Type:        SecretTypeGitHubOAuth,
		Severity:    SeverityCritical,
		Regex:       regexp.MustCompile(`(gho_[A-Za-z0-9]{36,})`),
		Description: "GitHub OAuth Access Token",
	},
	{
		Name:        "stripe_live_key",
		Type:        SecretTypeStripeLiveKey,
		Severity:    SeverityCritical,
		Regex:       regexp.MustCompile(`(sk_live_[A-Za-z0-9]{24,})`),
		Description: "Stripe Live Secret Key",
	},
	{
		Name:        "slack_bot_token",
		Type:        SecretTypeSlackBotToken,
		Severity:    SeverityHigh,
		Regex:       regexp.MustCompile(`(xoxb-[0-9]{10,}-[0-9]{10,}-[A-Za-z0-9]{24,})`),
		Description: "Slack Bot Token",
	},
	{
		Name:        "slack_webhook",
		Type:        SecretTypeSlackWebhook,
		Severity:    SeverityHigh,
		Regex:       regexp.MustCompile(`(https://hooks\.slack\.com/services/T[A-Za-z0-9]+/B[A-Za-z0-9]+/[A-Za-z0-9]{20,})`),
		Description: "Slack Incoming Webhook URL",
	},
	{
		Name:        "private_key_block",
		Type:        SecretTypePrivateKey,
		Severity:    SeverityCritical,
		Regex:       regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH |DSA |PGP )?PRIVATE KEY(?: BLOCK)?-----`),
		Description: "Private Key Block",
	},
	{
		Name:        "google_api_key",
		Type:        SecretTypeGoogleAPIKey,
		Severity:    SeverityHigh,
		Regex:       regexp.MustCompile(`(AIza[A-Za-z0-9_\-]{35})`),
		Description: "Google API Key",
	},
	{
		Name:        "npm_token",
		Type:        SecretTypeNPMToken,
		Severity:    SeverityHigh,
		Regex:       regexp.MustCompile(`(npm_[A-Za-z0-9]{36,})`),
		Description: "npm Access Token",
	},
	{
		Name:        "jwt",
		Type:        SecretTypeJWT,
		Severity:    SeverityMedium,
		Regex:       regexp.MustCompile(`(eyJ[A-Za-z0-9_\-]{10,}\.eyJ[A-Za-z0-9_\-]{10,}\.[A-Za-z0-9_\-]{10,})`),
		MinEntropy:  3.0,
		Description: "JSON Web Token",
	},
	{
		Name:        "generic_api_key",
		Type:        SecretTypeGenericAPIKey,
		Severity:    SeverityMedium,
		Regex:       regexp.MustCompile(`(?i)(?:api[_-]?key|apikey|access[_-]?token|auth[_-]?token)['":\s=]+['"]?([A-Za-z0-9_\-]{20,64})['"]?`),
		MinEntropy:  3.5,
		Description: "Generic API Key",
	},
	{
		Name:        "password_in_url",
		Type:        SecretTypePasswordInURL,
		Severity:    SeverityHigh,
		Regex:       regexp.MustCompile(`[a-zA-Z]{3,10}://[^/\s:@]{3,20}:([^/\s:@]{3,40})@[^\s]+`),
		Description: "Password embedded in URL",
	},
}
