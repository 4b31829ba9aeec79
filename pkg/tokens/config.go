package tokens

import "time"

type Config struct {
	AccessSecret  string        `env:"AUTH_ACCESS_SECRET,required"`        // AccessSecret signs access tokens.
	RefreshSecret string        `env:"AUTH_REFRESH_SECRET,required"`       // RefreshSecret signs refresh tokens; must differ from AccessSecret.
	AccessTTL     time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"15m"`   // AccessTTL is the access token lifetime.
	RefreshTTL    time.Duration `env:"AUTH_REFRESH_TTL" envDefault:"720h"` // RefreshTTL is the refresh token lifetime.
	Issuer        string        `env:"AUTH_TOKEN_ISSUER" envDefault:"authkit"`

	PurgeGrace    time.Duration `env:"AUTH_PURGE_GRACE" envDefault:"168h"` // PurgeGrace retains expired rows for forensics before the sweep deletes them.
	PurgeInterval time.Duration `env:"AUTH_PURGE_INTERVAL" envDefault:"1h"`
}
