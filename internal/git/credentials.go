package git

import (
	"fmt"
	"net/url"
)

// InjectCredentials returns cloneURL with the username and password embedded
// as percent-encoded userinfo. Only http and https URLs are rewritten; other
// schemes (ssh, file) are returned unchanged since their authentication does
// not travel in the URL.
func InjectCredentials(cloneURL, username, password string) (string, error) {
	if username == "" && password == "" {
		return cloneURL, nil
	}

	u, err := url.Parse(cloneURL)
	if err != nil {
		return "", fmt.Errorf("invalid clone URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return cloneURL, nil
	}

	if password == "" {
		u.User = url.User(username)
	} else {
		u.User = url.UserPassword(username, password)
	}

	return u.String(), nil
}
