// Command tokengen mints a bearer token for the summary trigger endpoints.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	flag "github.com/spf13/pflag"

	"lsm-digest/internal/pkg/jwtutil"
)

func main() {
	var (
		secret   string
		operator string
		ttl      time.Duration
	)
	flag.StringVarP(&secret, "secret", "s", os.Getenv("JWT_SECRET"), "HS256 signing secret (defaults to $JWT_SECRET)")
	flag.StringVarP(&operator, "operator", "o", "", "operator name stored in the token")
	flag.DurationVar(&ttl, "ttl", defaultTTL(), "token lifetime (defaults to $JWT_EXPIRE_MINUTE minutes)")
	flag.Parse()

	if operator == "" {
		fmt.Fprintln(os.Stderr, "tokengen: --operator is required")
		flag.Usage()
		os.Exit(2)
	}

	token, err := jwtutil.GenerateToken(secret, ttl, operator)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func defaultTTL() time.Duration {
	if minutes, err := strconv.Atoi(os.Getenv("JWT_EXPIRE_MINUTE")); err == nil && minutes > 0 {
		return time.Duration(minutes) * time.Minute
	}
	return 30 * 24 * time.Hour
}
