package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lgcert/indigene-certificate/internal/application"
	"github.com/lgcert/indigene-certificate/internal/digitization"
	"github.com/lgcert/indigene-certificate/internal/portal/presenter"
	"github.com/lgcert/indigene-certificate/internal/portal/services"
)

type listOptions struct {
	status string
	search string
	page   int
	size   int
}

func (o *listOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.status, "status", "", "Only show records with this status")
	f.StringVarP(&o.search, "search", "s", "", "Match name, NIN or reference")
	f.IntVar(&o.page, "page", 1, "Page to show")
	f.IntVar(&o.size, "size", presenter.DefaultPageSize, "Rows per page (10, 25, 50 or 100)")
}

func (o *listOptions) pagination(total int) (*presenter.Pagination, error) {
	p := presenter.NewPagination(presenter.DefaultPageSize)
	if err := p.SetPageSize(o.size); err != nil {
		return nil, err
	}
	p.SetTotal(int64(total))
	if err := p.Goto(o.page); err != nil {
		return nil, err
	}
	return p, nil
}

// pageOf slices items to the rows shown on p.
func pageOf[T any](items []T, p *presenter.Pagination) []T {
	first, last := p.Range()
	if first == 0 {
		return nil
	}
	return items[first-1 : last]
}

func newApplicationsCommand(env *environment) *cobra.Command {
	var opts listOptions
	var digitized bool
	cmd := &cobra.Command{
		Use:     "applications",
		Aliases: []string{"apps"},
		Short:   "List your applications or digitization requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, out := cmd.Context(), cmd.OutOrStdout()
			table := presenter.NewTable("ID", "REFERENCE", "NAME", "LGA", "STATUS", "PAYMENT", "SUBMITTED")
			var p *presenter.Pagination
			if digitized {
				items, err := services.NewDigitizationService(env.backend).Mine(ctx)
				if err != nil {
					return err
				}
				items = digitizationFilter(opts).Apply(items)
				if p, err = opts.pagination(len(items)); err != nil {
					return err
				}
				for _, r := range pageOf(items, p) {
					table.Add(r.ID, r.Reference, r.FullName, r.LocalGovernmentName, r.Status, r.PaymentStatus, r.SubmittedAt.Format("2006-01-02"))
				}
			} else {
				items, err := services.NewApplicationService(env.backend).Mine(ctx)
				if err != nil {
					return err
				}
				items = applicationFilter(opts).Apply(items)
				if p, err = opts.pagination(len(items)); err != nil {
					return err
				}
				for _, a := range pageOf(items, p) {
					table.Add(a.ID, a.Reference, a.FullName, a.LocalGovernmentName, a.Status, a.PaymentStatus, a.SubmittedAt.Format("2006-01-02"))
				}
			}
			if p.TotalItems == 0 {
				fmt.Fprintln(out, "No records found.")
				return nil
			}
			if err := table.Render(out); err != nil {
				return err
			}
			fmt.Fprintln(out, p.Summary())
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&digitized, "digitization", false, "List digitization requests instead")
	return cmd
}

func applicationFilter(o listOptions) presenter.Filter[application.Application] {
	return presenter.Filter[application.Application]{
		Search:   o.search,
		Status:   o.status,
		Keys:     func(a application.Application) []string { return []string{a.FullName, a.NIN, a.Reference} },
		StatusOf: func(a application.Application) string { return string(a.Status) },
	}
}

func digitizationFilter(o listOptions) presenter.Filter[digitization.Request] {
	return presenter.Filter[digitization.Request]{
		Search: o.search,
		Status: o.status,
		Keys: func(r digitization.Request) []string {
			return []string{r.FullName, r.NIN, r.Reference, r.OldCertificateNumber}
		},
		StatusOf: func(r digitization.Request) string { return string(r.Status) },
	}
}

func newCertificatesCommand(env *environment) *cobra.Command {
	certs := &cobra.Command{Use: "certificates", Aliases: []string{"certs"}, Short: "Your issued certificates"}

	certs.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List issued certificates",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := services.NewCertificateService(env.backend).Mine(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No certificates issued yet.")
				return nil
			}
			table := presenter.NewTable("ID", "CERTIFICATE", "HOLDER", "LGA", "ISSUED")
			for _, c := range items {
				table.Add(c.ID, c.CertificateID, c.HolderName, c.LocalGovernmentName, c.IssuedAt.Format("2006-01-02"))
			}
			return table.Render(out)
		},
	})

	var output string
	download := &cobra.Command{
		Use:   "download <id>",
		Short: "Save a certificate PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			data, err := services.NewCertificateService(env.backend).Download(cmd.Context(), id)
			if err != nil {
				return err
			}
			path := output
			if path == "" {
				path = fmt.Sprintf("certificate-%d.pdf", id)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}
	download.Flags().StringVarP(&output, "output", "o", "", "Destination file (default certificate-<id>.pdf)")
	certs.AddCommand(download)
	return certs
}

func newVerifyCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <certificate-id>",
		Short: "Check whether a certificate is genuine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := services.NewCertificateService(env.backend).Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !v.Valid {
				fmt.Fprintf(out, "%s is not a valid certificate\n", v.CertificateID)
				return nil
			}
			lga := v.LocalGovernment
			if v.State != "" {
				lga += ", " + v.State
			}
			fmt.Fprintf(out, "%s is valid\nHolder: %s\nLocal government: %s\n", v.CertificateID, v.HolderName, lga)
			if v.IssuedAt != nil {
				fmt.Fprintf(out, "Issued: %s\n", v.IssuedAt.Format("2 January 2006"))
			}
			if v.Digitized {
				fmt.Fprintln(out, "Digitized from a paper certificate")
			}
			return nil
		},
	}
}

func newLGAsCommand(env *environment) *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "lgas",
		Short: "List local governments and their fees",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := services.NewAdminService(env.backend).LocalGovernments(cmd.Context(), state)
			if err != nil {
				return err
			}
			table := presenter.NewTable("ID", "CODE", "NAME", "STATE", "APPLICATION FEE", "DIGITIZATION FEE")
			for _, l := range items {
				table.Add(l.ID, l.Code, l.Name, l.State, money(l.ApplicationFee), money(l.DigitizationFee))
			}
			return table.Render(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "Only list local governments in this state")
	return cmd
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

func money(v float64) string { return fmt.Sprintf("NGN %.2f", v) }
