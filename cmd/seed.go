package cmd

import (
	"context"
	"fmt"

	"github.com/jmehdipour/contact-desk/internal/bootstrap"
	"github.com/jmehdipour/contact-desk/internal/service/contact"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, lg, err := bootstrap.Load(cmd)
		if err != nil {
			return err
		}

		sqlDB, err := bootstrap.OpenMySQL(cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		// no notifier: demo data must not send email
		svc := bootstrap.ContactService(cfg, sqlDB, nil, lg)

		lg.Info("seeding demo contacts")
		if err := seedContacts(context.Background(), svc, lg); err != nil {
			return err
		}
		lg.Info("seed completed")
		return nil
	},
}

type seedContact struct {
	sub     contact.Submission
	actions []contact.Action
}

var demoContacts = []seedContact{
	{
		sub: contact.Submission{
			Name:    "Rahul Sharma",
			Email:   "rahul@test.com",
			Phone:   "+919876543210",
			Subject: "Moving Services Inquiry",
			Message: "Hi, I need to move my 2BHK apartment from Mumbai to Pune next month. This is urgent.",
		},
	},
	{
		sub: contact.Submission{
			Name:    "Asha Rao",
			Email:   "asha.rao@example.com",
			Subject: "Office relocation quote",
			Message: "We are moving our office within Bengaluru and would like an important quote.",
			Source:  "api",
		},
		actions: []contact.Action{contact.ActionMarkRead},
	},
	{
		sub: contact.Submission{
			Name:    "Vikram Iyer",
			Email:   "vikram@example.com",
			Subject: "Packing material",
			Message: "Do you sell packing boxes separately from the moving service?",
			Source:  "mobile",
		},
		actions: []contact.Action{contact.ActionMarkReplied},
	},
	{
		sub: contact.Submission{
			Name:    "Neha Gupta",
			Email:   "neha.gupta@example.com",
			Subject: "Car transport",
			Message: "Looking to ship a car from Delhi to Chennai, what are the charges?",
		},
		actions: []contact.Action{contact.ActionMarkReplied, contact.ActionArchive},
	},
}

func seedContacts(ctx context.Context, svc *contact.Service, lg *zap.Logger) error {
	for _, d := range demoContacts {
		c, err := svc.Submit(ctx, d.sub)
		if err != nil {
			return fmt.Errorf("seed contact %q: %w", d.sub.Name, err)
		}
		for _, a := range d.actions {
			if _, err := svc.Transition(ctx, c.ID, a, contact.Payload{}); err != nil {
				return fmt.Errorf("seed %s on %s: %w", a, c.ID, err)
			}
		}
		lg.Info("seeded contact", zap.String("id", c.ID), zap.String("priority", c.Priority.String()))
	}
	return nil
}
