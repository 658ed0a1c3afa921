package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lgcert/indigene-certificate/internal/dynamicfield"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/internal/portal/presenter"
	"github.com/lgcert/indigene-certificate/internal/portal/services"
)

func newAdminCommand(env *environment) *cobra.Command {
	admin := &cobra.Command{Use: "admin", Short: "Review records and manage local governments"}
	admin.AddCommand(
		newAdminListCommand(env),
		newAdminStatusCommand(env),
		newAdminDashboardCommand(env),
		newAdminAuditCommand(env),
		newAdminFieldsCommand(env),
	)
	return admin
}

func newAdminListCommand(env *environment) *cobra.Command {
	var opts listOptions
	var filter services.ListFilter
	var digitized bool
	cmd := &cobra.Command{
		Use:   "applications",
		Short: "List submitted applications or digitization requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := presenter.NewPagination(0).SetPageSize(opts.size); err != nil {
				return err
			}
			filter.Status, filter.Search = opts.status, opts.search
			filter.Page, filter.PageSize = opts.page, opts.size
			ctx, out := cmd.Context(), cmd.OutOrStdout()

			table := presenter.NewTable("ID", "REFERENCE", "NAME", "NIN", "LGA", "STATUS", "PAYMENT")
			var count int64
			if digitized {
				page, err := services.NewDigitizationService(env.backend).List(ctx, filter)
				if err != nil {
					return err
				}
				for _, r := range page.Items {
					table.Add(r.ID, r.Reference, r.FullName, r.NIN, r.LocalGovernmentName, r.Status, r.PaymentStatus)
				}
				count = page.Count
			} else {
				page, err := services.NewApplicationService(env.backend).List(ctx, filter)
				if err != nil {
					return err
				}
				for _, a := range page.Items {
					table.Add(a.ID, a.Reference, a.FullName, a.NIN, a.LocalGovernmentName, a.Status, a.PaymentStatus)
				}
				count = page.Count
			}
			p := &presenter.Pagination{Page: opts.page, PageSize: opts.size}
			p.SetTotal(count)
			if count == 0 {
				fmt.Fprintln(out, "No records found.")
				return nil
			}
			if err := table.Render(out); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s (page %d of %d)\n", p.Summary(), p.Page, p.TotalPages())
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&filter.PaymentStatus, "payment-status", "", "Only show records with this payment status")
	cmd.Flags().UintVar(&filter.LocalGovernmentID, "lga", 0, "Only show records of this local government")
	cmd.Flags().BoolVar(&digitized, "digitization", false, "List digitization requests instead")
	return cmd
}

func newAdminStatusCommand(env *environment) *cobra.Command {
	var note string
	var digitized bool
	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a record to under_review, approved or rejected",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			change := services.StatusChange{Status: strings.ToLower(args[1]), Note: note}
			ctx, out := cmd.Context(), cmd.OutOrStdout()
			if digitized {
				r, err := services.NewDigitizationService(env.backend).ChangeStatus(ctx, id, change)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Digitization request %s is now %s\n", r.Reference, r.Status)
				return nil
			}
			a, err := services.NewApplicationService(env.backend).ChangeStatus(ctx, id, change)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Application %s is now %s\n", a.Reference, a.Status)
			if a.CertificateID != "" {
				fmt.Fprintf(out, "Certificate issued: %s\n", a.CertificateID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Review note, required when rejecting")
	cmd.Flags().BoolVar(&digitized, "digitization", false, "The id is a digitization request")
	return cmd
}

func newAdminDashboardCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show review and revenue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := services.NewAdminService(env.backend).Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			table := presenter.NewTable("", "TOTAL", "PAID", "AWAITING REVIEW")
			for _, row := range []struct {
				name  string
				stats *lifecycle.Stats
			}{{"Applications", d.Applications}, {"Digitization", d.Digitization}} {
				if row.stats == nil {
					continue
				}
				table.Add(row.name, row.stats.Total, row.stats.Paid, row.stats.AwaitingCount)
			}
			if err := table.Render(out); err != nil {
				return err
			}
			fmt.Fprintf(out, "Certificates issued: %d\nPending review: %d\nRevenue: %s\n", d.CertificatesIssued, d.PendingReview, money(d.Revenue))
			return nil
		},
	}
}

func newAdminAuditCommand(env *environment) *cobra.Command {
	var filter services.AuditFilter
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Browse the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := services.NewAdminService(env.backend).AuditLogs(cmd.Context(), filter)
			if err != nil {
				return err
			}
			table := presenter.NewTable("TIME", "ACTION", "STATUS", "USER", "DETAILS")
			for _, l := range page.Items {
				user := "-"
				if l.UserName != nil {
					user = *l.UserName
				}
				table.Add(l.CreatedAt.Format("2006-01-02 15:04"), l.Action, l.Status, user, l.Details)
			}
			out := cmd.OutOrStdout()
			if err := table.Render(out); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d entries\n", page.Count)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&filter.Action, "action", "", "Only this action")
	f.StringVar(&filter.Status, "status", "", "Only success or failure entries")
	f.StringVarP(&filter.Search, "search", "s", "", "Match details")
	f.StringVar(&filter.FromDate, "from", "", "Earliest date, YYYY-MM-DD")
	f.StringVar(&filter.ToDate, "to", "", "Latest date, YYYY-MM-DD")
	f.IntVar(&filter.Page, "page", 1, "Page to show")
	f.IntVar(&filter.Limit, "limit", 25, "Entries per page")
	return cmd
}

func newAdminFieldsCommand(env *environment) *cobra.Command {
	fields := &cobra.Command{Use: "fields", Short: "Extra application fields of a local government"}

	var lgaID uint
	list := &cobra.Command{
		Use:   "list",
		Short: "List the extra fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := services.NewAdminService(env.backend).Fields(cmd.Context(), lgaID)
			if err != nil {
				return err
			}
			sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
			table := presenter.NewTable("ID", "KEY", "LABEL", "KIND", "REQUIRED", "OPTIONS")
			for _, f := range items {
				table.Add(f.ID, f.Key, f.Label, f.Kind, f.Required, strings.Join(f.Choices(), "|"))
			}
			return table.Render(cmd.OutOrStdout())
		},
	}
	list.Flags().UintVar(&lgaID, "lga", 0, "Local government id")
	_ = list.MarkFlagRequired("lga")

	var in dynamicfield.Input
	var kind string
	add := &cobra.Command{
		Use:   "add <label>",
		Short: "Add an extra field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Label = args[0]
			in.Kind = dynamicfield.Kind(kind)
			if !in.Kind.Valid() {
				return fmt.Errorf("unknown field kind %q", kind)
			}
			f, err := services.NewAdminService(env.backend).CreateField(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added field %s (%d)\n", f.Key, f.ID)
			return nil
		},
	}
	af := add.Flags()
	af.UintVar(&in.LocalGovernmentID, "lga", 0, "Local government id")
	af.StringVar(&in.Key, "key", "", "Form key (derived from the label when empty)")
	af.StringVar(&kind, "kind", string(dynamicfield.KindText), "text, number, date, select or textarea")
	af.BoolVar(&in.Required, "required", false, "Applicants must fill the field")
	af.StringSliceVar(&in.Options, "option", nil, "Choice of a select field, repeatable")
	af.IntVar(&in.Position, "position", 0, "Display order")
	_ = add.MarkFlagRequired("lga")

	fields.AddCommand(list, add)
	return fields
}
