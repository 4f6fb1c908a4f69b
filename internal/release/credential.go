package release

import "strings"

// DefaultTokenEnv is the environment variable holding the upload token.
const DefaultTokenEnv = "PYPI_TOKEN"

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Credential is the username/token pair forwarded to the upload step.
type Credential struct {
	Username string
	Token    string
}

// String redacts the token so a Credential can be logged safely.
func (c Credential) String() string {
	return c.Username + ":***"
}

// Env returns the variables that hand the credential to twine without
// putting the token on the command line.
func (c Credential) Env() []string {
	return []string{
		"TWINE_USERNAME=" + c.Username,
		"TWINE_PASSWORD=" + c.Token,
	}
}

// CheckCredential confirms an upload token is present before anything is mutated.
func CheckCredential(index TargetIndex, lookup LookupFunc, envVar string) (Credential, error) {
	if envVar == "" {
		envVar = DefaultTokenEnv
	}
	token, ok := lookup(envVar)
	if !ok || strings.TrimSpace(token) == "" {
		return Credential{}, &MissingCredentialError{Index: index, EnvVar: envVar}
	}
	return Credential{Username: TokenUsername, Token: token}, nil
}
