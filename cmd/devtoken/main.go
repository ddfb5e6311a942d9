// Command devtoken prints an access token signed with JWT_SECRET, for
// calling the API locally without the identity provider.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/iliyamo/seat-booking-engine/internal/config"
	"github.com/iliyamo/seat-booking-engine/internal/utils"
)

func main() {
	var (
		sub  = flag.StringP("user", "u", "", "subject (user id)")
		role = flag.StringP("role", "r", "CUSTOMER", "role claim (CUSTOMER or ADMIN)")
		ttl  = flag.Duration("ttl", 0, "token lifetime (default ACCESS_TOKEN_TTL_MIN)")
	)
	flag.Parse()
	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if *sub == "" || secret == "" {
		fmt.Fprintln(os.Stderr, "usage: JWT_SECRET=... devtoken --user ID [--role ADMIN] [--ttl 1h]")
		os.Exit(2)
	}
	if *ttl <= 0 {
		*ttl = config.AccessTokenTTL()
	}
	tok, err := utils.NewAccessToken(secret, *sub, *role, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
}
