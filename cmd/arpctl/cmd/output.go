package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/MrEthical07/authpipe/notify"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

func (a *app) print(w io.Writer, v any) error {
	switch format := a.v.GetString("output"); format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// colorNotifier prints user-facing pipeline messages to the terminal.
type colorNotifier struct {
	w io.Writer
}

func newColorNotifier(w io.Writer) *colorNotifier {
	return &colorNotifier{w: w}
}

func (n *colorNotifier) RedirectToLogin(context.Context) {
	color.New(color.FgYellow, color.Bold).Fprintln(n.w, "Sign in again, then run: arpctl session set --access-token ... --refresh-token ...")
}

func (n *colorNotifier) Notify(_ context.Context, message string, level notify.Level) {
	c := color.New(color.FgCyan)
	switch level {
	case notify.LevelSuccess:
		c = color.New(color.FgGreen)
	case notify.LevelWarning:
		c = color.New(color.FgYellow)
	case notify.LevelError:
		c = color.New(color.FgRed)
	}
	c.Fprintln(n.w, message)
}
