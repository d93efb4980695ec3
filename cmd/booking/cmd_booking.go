package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wolfman30/branch-booking/internal/booking"
	"github.com/wolfman30/branch-booking/internal/views"
)

func newBranchesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "branches",
		Short: "List branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			branches, err := c.app.Client.Branches(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tADDRESS\tTIMEZONE")
			for _, b := range branches {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.ID, b.Name, b.Address, b.Timezone)
			}
			return tw.Flush()
		},
	}
}

func newSlotsCmd(c *cli) *cobra.Command {
	var branchID, date string
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List available time slots at a branch on a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form := views.NewBookingForm(c.deps())
			if err := loadSlots(cmd.Context(), form, branchID, date); err != nil {
				return err
			}
			printSlots(c, form.AvailableSlots())
			return nil
		},
	}
	cmd.Flags().StringVarP(&branchID, "branch", "b", "", "Branch id")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("branch")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

// bookingInput is the set of flags shared by book and reschedule.
type bookingInput struct {
	branchID string
	date     string
	start    string
	name     string
	email    string
	phone    string
}

func (in *bookingInput) bind(cmd *cobra.Command, withCustomer bool) {
	cmd.Flags().StringVarP(&in.branchID, "branch", "b", "", "Branch id")
	cmd.Flags().StringVarP(&in.date, "date", "d", "", "Date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&in.start, "time", "t", "", "Start time (HH:MM), as listed by slots")
	if withCustomer {
		cmd.Flags().StringVar(&in.name, "name", "", "Customer name (defaults to your username)")
		cmd.Flags().StringVar(&in.email, "email", "", "Customer email (defaults to your account email)")
		cmd.Flags().StringVar(&in.phone, "phone", "", "Customer phone")
	}
}

func newBookCmd(c *cli) *cobra.Command {
	var in bookingInput
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book an appointment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(); err != nil {
				return err
			}
			form := views.NewBookingForm(c.deps())
			if err := form.Init(cmd.Context()); err != nil {
				return errors.New(form.Error())
			}
			return c.submitBooking(cmd.Context(), form, in)
		},
	}
	in.bind(cmd, true)
	return cmd
}

func (c *cli) submitBooking(ctx context.Context, form *views.BookingForm, in bookingInput) error {
	branchID := in.branchID
	if branchID == "" {
		branchID = form.Form().Value(views.FieldBranchID)
	}
	if err := loadSlots(ctx, form, branchID, in.date); err != nil {
		return err
	}
	if in.start == "" {
		printSlots(c, form.AvailableSlots())
		return errors.New("choose a start time with --time")
	}
	form.Set(views.FieldStartTime, normalizeTime(in.start))
	if in.name != "" {
		form.Set(views.FieldCustomerName, in.name)
	}
	if in.email != "" {
		form.Set(views.FieldCustomerEmail, in.email)
	}
	if in.phone != "" {
		form.Set(views.FieldCustomerPhone, in.phone)
	}

	appt, err := form.Submit(ctx)
	if err != nil {
		if errors.Is(err, views.ErrInvalidForm) {
			return formError(form.Form(), form.ErrorText)
		}
		return errors.New(form.Error())
	}
	fmt.Fprintf(c.out, "Booked %s\n", appt.BookingReference)
	printAppointment(c, *appt)
	return nil
}

// loadSlots selects the branch and date, failing with the form's own
// messages when either is unusable.
func loadSlots(ctx context.Context, form *views.BookingForm, branchID, date string) error {
	if err := form.SetBranch(ctx, branchID); err != nil {
		return err
	}
	if err := form.SetDate(ctx, date); err != nil {
		return err
	}
	var problems []string
	for _, name := range []string{views.FieldBranchID, views.FieldAppointmentDate} {
		if form.Form().Invalid(name) {
			problems = append(problems, fmt.Sprintf("%s: %s", name, form.ErrorText(name)))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w\n  %s", views.ErrInvalidForm, strings.Join(problems, "\n  "))
	}
	return nil
}

// normalizeTime accepts HH:MM and returns the wire form HH:MM:SS.
func normalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if strings.Count(s, ":") == 1 {
		return s + ":00"
	}
	return s
}

func printSlots(c *cli, slots []booking.TimeSlot) {
	if len(slots) == 0 {
		fmt.Fprintln(c.out, "No available time slots")
		return
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tFREE")
	for _, s := range slots {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\n", booking.FormatTime(s.StartTime), booking.FormatTime(s.EndTime), s.Capacity-s.BookedCount, s.Capacity)
	}
	_ = tw.Flush()
}

func printAppointment(c *cli, a booking.AppointmentResponse) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Reference:\t%s\n", a.BookingReference)
	fmt.Fprintf(tw, "Status:\t%s\n", a.State())
	fmt.Fprintf(tw, "Branch:\t%s\n", a.BranchName)
	if a.BranchAddress != "" {
		fmt.Fprintf(tw, "Address:\t%s\n", a.BranchAddress)
	}
	fmt.Fprintf(tw, "Date:\t%s\n", booking.FormatDate(a.AppointmentDate))
	fmt.Fprintf(tw, "Time:\t%s - %s\n", booking.FormatTime(a.StartTime), booking.FormatTime(a.EndTime))
	fmt.Fprintf(tw, "Customer:\t%s <%s> %s\n", a.CustomerName, a.CustomerEmail, a.CustomerPhone)
	_ = tw.Flush()
}
