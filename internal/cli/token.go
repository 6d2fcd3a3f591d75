package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/focusbot/internal/keyring"
)

// TokenCmd manages the bot token stored in the OS keyring.
type TokenCmd struct {
	Set    TokenSetCmd    `cmd:"" help:"Store the bot token in the OS keyring."`
	Get    TokenGetCmd    `cmd:"" help:"Show the stored token (masked)."`
	Delete TokenDeleteCmd `cmd:"" help:"Remove the stored token."`
	Status TokenStatusCmd `cmd:"" help:"Check keyring availability and where the token comes from."`
}

// TokenSetCmd stores the bot token in the OS keyring
type TokenSetCmd struct {
	Token string `arg:"" help:"Discord bot token."`
}

func (cmd *TokenSetCmd) Run(ctx *Context) error {
	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(cmd.Token), "Bot "))
	if token == "" {
		return errors.New("token cannot be empty")
	}
	if strings.ContainsAny(token, " \t\n") {
		return errors.New("token must not contain whitespace")
	}

	if err := keyring.SetToken(token); err != nil {
		return err
	}
	ctx.printf("%s Token stored in OS keyring (%s)\n", okStyle.Render("✓"), keyring.Mask(token))
	ctx.println("  DISCORD_TOKEN still takes precedence when it is set.")
	return nil
}

// TokenGetCmd prints the stored token, masked.
type TokenGetCmd struct{}

func (cmd *TokenGetCmd) Run(ctx *Context) error {
	token, err := keyring.GetToken()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no token found in keyring. Use 'focusbot token set' to store one")
		}
		return fmt.Errorf("failed to retrieve token from keyring: %w", err)
	}
	ctx.println(keyring.Mask(token))
	return nil
}

// TokenDeleteCmd removes the stored token.
type TokenDeleteCmd struct{}

func (cmd *TokenDeleteCmd) Run(ctx *Context) error {
	if err := keyring.DeleteToken(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no token found in keyring")
		}
		return err
	}
	ctx.printf("%s Token deleted from OS keyring\n", okStyle.Render("✓"))
	return nil
}

// TokenStatusCmd checks the availability of the OS keyring
type TokenStatusCmd struct{}

func (cmd *TokenStatusCmd) Run(ctx *Context) error {
	if ctx.Config != nil && ctx.Config.Token != "" {
		ctx.printf("%s Token provided by DISCORD_TOKEN (%s)\n", okStyle.Render("✓"), keyring.Mask(ctx.Config.Token))
	}

	if !keyring.IsAvailable() {
		ctx.printf("%s OS keyring is not available on this system\n", failStyle.Render("❌"))
		return keyring.ErrKeyringUnavailable
	}
	ctx.printf("%s OS keyring is available\n", okStyle.Render("✓"))

	_, err := keyring.GetToken()
	switch {
	case err == nil:
		ctx.printf("%s Token is stored in keyring\n", okStyle.Render("✓"))
	case errors.Is(err, keyring.ErrNotFound):
		ctx.printf("%s No token stored in keyring\n", dimStyle.Render("ℹ"))
	default:
		return err
	}
	return nil
}
