package main // operator token command

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/ticket-booking/internal/config"
	"github.com/iliyamo/ticket-booking/internal/utils"
)

const usage = "usage: token <subject> [role]"

// token signs a bearer token for an operator, e.g. an admin token for the
// catalog write endpoints:
//
//	JWT_SECRET=... token ops admin
func main() {
	config.LoadDotEnv()
	cfg := config.LoadToken()
	config.SetupLogger("token", "info", "dev")

	if err := run(os.Args[1:], cfg, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("token: not issued")
	}
}

func run(args []string, cfg config.TokenConfig, out io.Writer) error {
	if len(args) < 1 || len(args) > 2 || args[0] == "" {
		return errors.New(usage)
	}
	role := ""
	if len(args) == 2 {
		role = args[1]
	}
	tok, err := utils.NewAccessToken(cfg.JWTSecret, args[0], role, cfg.TTL)
	if err != nil {
		return errors.Wrap(err, "sign token")
	}
	log.Info().Str("sub", args[0]).Str("role", role).Time("exp", tok.Exp).Msg("token: issued")
	_, err = fmt.Fprintln(out, tok.Token)
	return err
}
