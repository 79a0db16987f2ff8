package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"speakeasy/internal/domain"
	"speakeasy/internal/i18n"
)

// simplifyCmd is the non-interactive path: one submission, print the
// result, exit.
func simplifyCmd() *cobra.Command {
	var (
		text     string
		lang     string
		audioOut string
	)
	cmd := &cobra.Command{
		Use:   "simplify [file]",
		Short: "Simplify text or a document in one shot",
		Long:  "Routes one submission and prints the plain-language result. Pass a .txt or\n.pdf file as an argument, or text with --text.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if text == "" && len(args) == 0 {
				return fmt.Errorf("nothing to simplify: pass a file or --text")
			}

			cfg := loadConfig()
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			msg := domain.OutgoingMessage{Text: text, LanguageCode: lang}
			if len(args) == 1 {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				name := filepath.Base(args[0])
				kind := domain.AttachmentText
				content := string(data)
				if strings.EqualFold(filepath.Ext(name), ".pdf") {
					kind = domain.AttachmentPDF
					content = domain.BinaryDataURL("application/pdf", data)
				}
				msg.Attachment = &domain.Attachment{Name: name, Kind: kind, Content: content}
			}

			res, err := a.router.Simplify(ctx, msg)
			if err != nil {
				return err
			}

			fmt.Println(res.Text)
			if audioOut != "" {
				if data, ok := res.AudioData(); ok {
					if err := os.WriteFile(audioOut, data, 0o644); err != nil {
						return fmt.Errorf("write audio: %w", err)
					}
					logger.Info("audio written", "path", audioOut)
				} else if res.AudioRef != "" {
					logger.Info("audio is a remote reference", "url", res.AudioRef)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "text to simplify instead of a file")
	cmd.Flags().StringVarP(&lang, "lang", "l", "en", "target language code")
	cmd.Flags().StringVarP(&audioOut, "audio", "a", "", "write spoken audio to this file")
	return cmd
}

func formCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "form",
		Short: "Extract and fill PDF form fields",
	}
	cmd.AddCommand(formExtractCmd())
	cmd.AddCommand(formFillCmd())
	return cmd
}

func formExtractCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "extract [file.pdf]",
		Short: "List a PDF's fillable fields as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			fields, has, err := a.pipeline.Extract(ctx, filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			if !has {
				fmt.Println("This document has no fillable fields.")
				return nil
			}

			if lang != "" {
				fields = a.pipeline.LocalizeFieldNames(ctx, a.resolver.Resolve(lang), fields)
			}

			out, err := json.MarshalIndent(fields, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "translate field labels into this language")
	return cmd
}

func formFillCmd() *cobra.Command {
	var (
		dataPath string
		outPath  string
	)
	cmd := &cobra.Command{
		Use:   "fill [file.pdf]",
		Short: "Populate a PDF form from a JSON value map",
		Long:  "Fills the form using --data, a JSON object mapping original field names to\nvalues, and writes the populated PDF to --out.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			pdf, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			raw, err := os.ReadFile(dataPath)
			if err != nil {
				return fmt.Errorf("read field data: %w", err)
			}
			var values domain.FieldValues
			if err := json.Unmarshal(raw, &values); err != nil {
				return fmt.Errorf("parse field data: %w", err)
			}

			filled, err := a.pipeline.Populate(ctx, filepath.Base(args[0]), pdf, values)
			if err != nil {
				return err
			}

			if outPath == "" {
				base := strings.TrimSuffix(args[0], filepath.Ext(args[0]))
				outPath = base + "_filled.pdf"
			}
			if err := os.WriteFile(outPath, filled, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			logger.Info("form populated", "output", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "JSON file mapping field names to values (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default: <input>_filled.pdf)")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func translateCmd() *cobra.Command {
	var (
		lang       string
		bundlePath string
	)
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate an interface string bundle",
		Long:  "Translates a JSON bundle of interface strings into the target language,\nthrough the AI/backend fallback chain, and prints the result. Without\n--file the built-in bundle is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			bundle := i18n.DefaultBundle()
			if bundlePath != "" {
				raw, err := os.ReadFile(bundlePath)
				if err != nil {
					return fmt.Errorf("read bundle: %w", err)
				}
				bundle = nil
				if err := json.Unmarshal(raw, &bundle); err != nil {
					return fmt.Errorf("parse bundle: %w", err)
				}
			}

			translated := a.translator.Localize(ctx, a.resolver.Resolve(lang), bundle)
			out, err := json.MarshalIndent(translated, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "target language code (required)")
	cmd.Flags().StringVarP(&bundlePath, "file", "f", "", "JSON bundle to translate (default: built-in strings)")
	_ = cmd.MarkFlagRequired("lang")
	return cmd
}
