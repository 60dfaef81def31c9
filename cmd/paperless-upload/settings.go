package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/nhle/paperless-upload/internal/credential"
	"github.com/nhle/paperless-upload/internal/model"
)

var credentialKeys = map[string]string{
	"paperless": credential.PaperlessTokenKey,
	"imap":      credential.IMAPPasswordKey,
	"smtp":      credential.SMTPPasswordKey,
}

func credentialKey(name string) (string, error) {
	key, ok := credentialKeys[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("unknown credential %q (use paperless, imap or smtp)", name)
	}
	return key, nil
}

func tokenCmd(a *app) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage secrets in the OS keyring",
	}
	cmd.PersistentFlags().StringVar(&target, "for", "paperless", "paperless (API token), imap or smtp (password)")

	cmd.AddCommand(&cobra.Command{
		Use:   "set [value]",
		Short: "Store a secret; prompts when no value is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			key, err := credentialKey(target)
			if err != nil {
				return err
			}
			var value string
			if len(args) == 1 {
				value = args[0]
			} else {
				err := huh.NewForm(huh.NewGroup(
					huh.NewInput().
						Title("Secret for " + target).
						EchoMode(huh.EchoModePassword).
						Value(&value).
						Validate(func(s string) error {
							if strings.TrimSpace(s) == "" {
								return errors.New("value is required")
							}
							return nil
						}),
				)).Run()
				if err != nil {
					return err
				}
			}
			if err := credential.Set(key, strings.TrimSpace(value)); err != nil {
				return err
			}
			a.logger.Info("secret stored", "key", key)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove a secret",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			key, err := credentialKey(target)
			if err != nil {
				return err
			}
			if err := credential.Delete(key); err != nil {
				return err
			}
			a.logger.Info("secret deleted", "key", key)
			return nil
		},
	})
	return cmd
}

func configCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or show the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			path := a.configPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s exists (use --force to overwrite)", path)
			}
			if err := model.SaveConfig(path, model.DefaultAppConfig()); err != nil {
				return err
			}
			a.logger.Info("config written", "path", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			shown := *cfg
			shown.Paperless.Token = maskSecret(cfg.Paperless.Token)
			out, err := yaml.Marshal(&shown)
			if err != nil {
				return err
			}
			fmt.Printf("# %s\n%s", a.configPath(), out)
			return nil
		},
	})
	return cmd
}

// maskSecret keeps the last four characters of long secrets.
func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return "****" + s[len(s)-4:]
	}
}
