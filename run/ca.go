package run

// Bundled CA roots for TLS to the feed from images without a system trust
// store. Every binary imports this package.
import _ "golang.org/x/crypto/x509roots/fallback"
