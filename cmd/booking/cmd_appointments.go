package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wolfman30/branch-booking/internal/booking"
	"github.com/wolfman30/branch-booking/internal/views"
)

func newAppointmentsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "appointments",
		Aliases: []string{"appts"},
		Short:   "List and manage your appointments",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.listAppointments(cmd)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your appointments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.listAppointments(cmd)
		},
	})
	cmd.AddCommand(newShowCmd(c))
	cmd.AddCommand(newCancelCmd(c))
	cmd.AddCommand(newRescheduleCmd(c))
	return cmd
}

func (c *cli) listAppointments(cmd *cobra.Command) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	list := views.NewAppointmentList(c.deps())
	if err := list.Load(cmd.Context()); err != nil {
		return errors.New(list.Error())
	}
	appts := list.Appointments()
	if len(appts) == 0 {
		fmt.Fprintln(c.out, "You have no appointments")
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REFERENCE\tSTATUS\tBRANCH\tDATE\tTIME\tACTIONS")
	for _, a := range appts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.BookingReference, a.State(), a.BranchName,
			booking.FormatDate(a.AppointmentDate), booking.FormatTime(a.StartTime),
			actions(list.CanCancel(a), list.CanReschedule(a)))
	}
	return tw.Flush()
}

func actions(canCancel, canReschedule bool) string {
	switch {
	case canCancel && canReschedule:
		return "cancel, reschedule"
	case canCancel:
		return "cancel"
	case canReschedule:
		return "reschedule"
	default:
		return "-"
	}
}

// loadDetail fetches one appointment through the detail view.
func (c *cli) loadDetail(cmd *cobra.Command, reference string) (*views.AppointmentDetail, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	detail := views.NewAppointmentDetail(c.deps(), reference)
	if err := detail.Load(cmd.Context()); err != nil {
		return nil, errors.New(detail.Error())
	}
	return detail, nil
}

func newShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show REFERENCE",
		Short: "Show one appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := c.loadDetail(cmd, args[0])
			if err != nil {
				return err
			}
			printAppointment(c, *detail.Appointment())
			return nil
		},
	}
}

func newCancelCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel REFERENCE",
		Short: "Cancel an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := c.loadDetail(cmd, args[0])
			if err != nil {
				return err
			}
			if !detail.CanCancel() {
				return fmt.Errorf("appointment %s can no longer be cancelled", args[0])
			}
			attempted, err := detail.Cancel(cmd.Context())
			if err != nil {
				return err
			}
			if !attempted {
				fmt.Fprintln(c.out, "Cancellation aborted")
				return nil
			}
			fmt.Fprintf(c.out, "Cancelled %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&c.yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newRescheduleCmd(c *cli) *cobra.Command {
	var in bookingInput
	cmd := &cobra.Command{
		Use:   "reschedule REFERENCE",
		Short: "Book a new time for an existing appointment's customer and branch",
		Long: `reschedule books a replacement appointment with the customer details
and branch of REFERENCE. The original booking is left untouched; cancel it
with "booking appointments cancel" once the new time is confirmed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := c.loadDetail(cmd, args[0])
			if err != nil {
				return err
			}
			if !detail.CanReschedule() {
				return fmt.Errorf("appointment %s can no longer be rescheduled", args[0])
			}
			detail.Reschedule()
			appt := *detail.Appointment()
			if state, ok := c.nav.takeState().(views.RescheduleState); ok {
				appt = state.Appointment
			}

			form := views.NewBookingForm(c.deps())
			if err := form.Init(cmd.Context()); err != nil {
				return errors.New(form.Error())
			}
			form.PrefillReschedule(appt)
			return c.submitBooking(cmd.Context(), form, in)
		},
	}
	in.bind(cmd, false)
	return cmd
}
