package main

import (
	"context"
	"fmt"

	"github.com/abp0107/whatsapp-clone/internal/logger"
	"github.com/abp0107/whatsapp-clone/internal/model"
)

// seeder — регистрация профилей и имён контактов (в продакшене их создаёт внешний сервис регистрации).
type seeder interface {
	CreateProfile(ctx context.Context, p *model.Profile) error
	SaveName(ctx context.Context, ownerID, peerID, name string) error
}

var demoProfiles = []model.Profile{
	{ID: "u1", FirstName: "Asha", LastName: "Patel", CompanyName: "Acme", Phone: "+91 98765 43210",
		Address: "12 MG Road", City: "Pune", State: "MH", Zipcode: "411001"},
	{ID: "u2", FirstName: "Ben", LastName: "Okafor", CompanyName: "Globex", Phone: "(555) 010-2000",
		Address: "4 Elm St", City: "Austin", State: "TX", Zipcode: "73301", Status: "At the gym"},
	{ID: "u3", Phone: "5550103000"},
}

func seedDemo(ctx context.Context, s seeder) error {
	for i := range demoProfiles {
		if err := s.CreateProfile(ctx, &demoProfiles[i]); err != nil {
			return fmt.Errorf("profile %s: %w", demoProfiles[i].ID, err)
		}
	}
	if err := s.SaveName(ctx, "u2", "u1", "Asha (design)"); err != nil {
		return fmt.Errorf("contact: %w", err)
	}
	logger.Infof("seeded %d demo profiles (use X-User-Id: u1 / u2 / u3)", len(demoProfiles))
	return nil
}
