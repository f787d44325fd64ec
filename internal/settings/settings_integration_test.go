//go:build integration

package settings_test

import (
	"context"
	"testing"

	"restoran-pos/internal/database/dbtest"
	"restoran-pos/internal/settings"
)

func TestServiceAgainstPostgres(t *testing.T) {
	db := dbtest.Postgres(t)
	ctx := context.Background()
	svc := settings.NewService(db, settings.Defaults{TaxRate: 8, ServiceChargeRate: 10})

	tax, service, err := svc.Rates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tax.String() != "8" || service.String() != "10" {
		t.Errorf("default rates = %s/%s", tax, service)
	}

	if _, err := svc.Update(ctx, settings.CategoryTax, []byte(`{"taxRate":5}`), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Update(ctx, settings.CategoryTax, []byte(`{"serviceChargeRate":0}`), 1); err != nil {
		t.Fatal(err)
	}
	tax, service, _ = svc.Rates(ctx)
	if tax.String() != "5" || service.String() != "0" {
		t.Errorf("updated rates = %s/%s", tax, service)
	}

	b, err := svc.Backup(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if b.Categories != len(settings.Categories()) {
		t.Errorf("backup categories = %d", b.Categories)
	}

	if _, err := svc.Reset(ctx, 1); err != nil {
		t.Fatal(err)
	}
	tax, _, _ = svc.Rates(ctx)
	if tax.String() != "8" {
		t.Errorf("rate after reset = %s", tax)
	}

	backups, err := svc.Backups(ctx, 10)
	if err != nil || len(backups) != 1 || backups[0].ID != b.ID {
		t.Errorf("backups = %v, %v", backups, err)
	}
}
