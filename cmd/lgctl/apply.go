package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lgcert/indigene-certificate/internal/digitization"
	"github.com/lgcert/indigene-certificate/internal/portal/services"
	"github.com/lgcert/indigene-certificate/internal/portal/upload"
	"github.com/lgcert/indigene-certificate/internal/portal/workflow"
	"github.com/lgcert/indigene-certificate/internal/validation"
)

// applicationFile is the YAML accepted by `lgctl apply --form`.
type applicationFile struct {
	validation.ApplicationForm `yaml:",inline"`
	Photo                      string `yaml:"photo"`
	IDSlip                     string `yaml:"id_slip"`
}

// digitizationFile is the YAML accepted by `lgctl digitize --form`.
type digitizationFile struct {
	validation.DigitizationForm `yaml:",inline"`
	ApplicationReference        string `yaml:"application_reference"`
	Photo                       string `yaml:"photo"`
	IDSlip                      string `yaml:"id_slip"`
	Scan                        string `yaml:"scan"`
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// attach loads path relative to the form file into slot.
func attach(ctx context.Context, out io.Writer, slot *upload.Controller, base, path string) error {
	if path == "" || slot == nil {
		return nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	f, err := upload.ReadFile(path)
	if err != nil {
		return err
	}
	label := slot.Config().Label
	stored, err := slot.Upload(ctx, f, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	fmt.Fprintf(out, "Attached %s: %s (%s)\n", label, stored.Name, validation.FormatSize(stored.Size))
	return nil
}

type flowOptions struct {
	form string
	wait time.Duration
}

func runFlow(cmd *cobra.Command, c *workflow.Controller, opts flowOptions) error {
	ctx, out := cmd.Context(), cmd.OutOrStdout()

	for c.Step() < workflow.Steps {
		step := c.Step()
		if err := c.Next(ctx); err != nil {
			if errors.Is(err, workflow.ErrPopupBlocked) {
				s := c.State()
				fmt.Fprintf(out, "Could not open a browser. Pay at: %s\n", s.AuthorizationURL)
				break
			}
			return fmt.Errorf("step %d: %w", step, err)
		}
	}
	s := c.State()
	for _, w := range s.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", w)
	}
	fmt.Fprintf(out, "Submitted %s %s\n", c.Kind(), s.Reference)
	fmt.Fprintf(out, "Payment reference: %s (NGN %.2f)\n", s.PaymentReference, s.Fee)

	if opts.wait <= 0 {
		fmt.Fprintf(out, "Run `lgctl pay verify %s` once payment is complete.\n", s.PaymentReference)
		return nil
	}
	return waitForPayment(ctx, out, c, opts.wait)
}

func waitForPayment(ctx context.Context, out io.Writer, c *workflow.Controller, wait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	for {
		err := c.Submit(ctx)
		var pending *workflow.PaymentStatusError
		if !errors.As(err, &pending) {
			if err == nil {
				fmt.Fprintln(out, "Payment confirmed.")
			}
			return err
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w; check again with `lgctl pay verify %s`", err, pending.Reference)
		case <-time.After(pollInterval):
		}
	}
}

func newApplyCommand(env *environment) *cobra.Command {
	var opts flowOptions
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Submit a certificate application from a YAML form and start payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			var form applicationFile
			if err := readYAML(opts.form, &form); err != nil {
				return err
			}
			ctx := cmd.Context()
			fields, err := env.backend.ListDynamicFields(ctx, form.LocalGovernmentID)
			if err != nil {
				env.log.Warnf("could not load extra fields: %v", err)
			}
			c := workflow.New(workflow.KindApplication, env.backend, workflow.Options{
				Launcher: env.paymentLauncher(cmd),
				Fields:   fields,
				Log:      env.log,
			})
			base := filepath.Dir(opts.form)
			if err := attach(ctx, cmd.OutOrStdout(), c.Photo, base, form.Photo); err != nil {
				return err
			}
			if err := attach(ctx, cmd.OutOrStdout(), c.IDSlip, base, form.IDSlip); err != nil {
				return err
			}
			c.SetDraft(workflow.Draft{Application: form.ApplicationForm})
			return runFlow(cmd, c, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.form, "form", "f", "", "YAML file with the application fields and attachment paths")
	cmd.Flags().DurationVar(&opts.wait, "wait", 0, "Wait this long for the payment to be confirmed")
	_ = cmd.MarkFlagRequired("form")
	return cmd
}

func newDigitizeCommand(env *environment) *cobra.Command {
	var opts flowOptions
	cmd := &cobra.Command{
		Use:   "digitize",
		Short: "Request digitization of a paper certificate from a YAML form",
		RunE: func(cmd *cobra.Command, args []string) error {
			var form digitizationFile
			if err := readYAML(opts.form, &form); err != nil {
				return err
			}
			ctx := cmd.Context()
			c := workflow.New(workflow.KindDigitization, env.backend, workflow.Options{
				Launcher: env.paymentLauncher(cmd),
				Log:      env.log,
			})
			base := filepath.Dir(opts.form)
			for _, a := range []struct {
				slot *upload.Controller
				path string
			}{{c.Photo, form.Photo}, {c.IDSlip, form.IDSlip}, {c.Scan, form.Scan}} {
				if err := attach(ctx, cmd.OutOrStdout(), a.slot, base, a.path); err != nil {
					return err
				}
			}
			c.SetDraft(workflow.Draft{Digitization: form.DigitizationForm, ApplicationReference: form.ApplicationReference})
			return runFlow(cmd, c, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.form, "form", "f", "", "YAML file with the request fields and attachment paths")
	cmd.Flags().DurationVar(&opts.wait, "wait", 0, "Wait this long for the payment to be confirmed")
	_ = cmd.MarkFlagRequired("form")
	return cmd
}

func newPayCommand(env *environment) *cobra.Command {
	pay := &cobra.Command{Use: "pay", Short: "Payment commands"}
	pay.AddCommand(&cobra.Command{
		Use:   "verify <reference>",
		Short: "Confirm a payment and finalize digitization requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, out := cmd.Context(), cmd.OutOrStdout()
			res, err := services.NewPaymentService(env.backend).Verify(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Payment %s: %s (NGN %.2f)\n", res.Reference, res.Status, res.Amount)
			if res.Status != "success" {
				return &workflow.PaymentStatusError{Reference: res.Reference, Status: res.Status}
			}
			if res.RecordType == digitization.RecordType {
				req, err := services.NewDigitizationService(env.backend).Finalize(ctx, res.RecordID, res.Reference)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Digitization request %s finalized\n", req.Reference)
			}
			return nil
		},
	})
	return pay
}
