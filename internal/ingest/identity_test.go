package ingest

import "testing"

func TestResolveIdentity_Landcruiser79(t *testing.T) {
	id := ResolveIdentity("2021 Toyota Landcruiser VDJ79 GXL Dual Cab ute 1VD-FTV V8 diesel")
	if id == nil {
		t.Fatal("expected resolved identity, got nil")
	}
	if id.Make != "Toyota" || id.Model != "Landcruiser" {
		t.Errorf("make/model = %s/%s, want Toyota/Landcruiser", id.Make, id.Model)
	}
	if id.SeriesFamily != "70" {
		t.Errorf("series family = %q, want 70", id.SeriesFamily)
	}
	if id.EngineFamily != "1VD" {
		t.Errorf("engine family = %q, want 1VD", id.EngineFamily)
	}
	if id.Badge != "GXL" {
		t.Errorf("badge = %q, want GXL", id.Badge)
	}
	if id.CabType != "dual cab" {
		t.Errorf("cab type = %q, want dual cab", id.CabType)
	}
	if id.BodyType != "ute" {
		t.Errorf("body type = %q, want ute", id.BodyType)
	}
}

func TestResolveIdentity_Aliases(t *testing.T) {
	tests := []struct {
		text      string
		wantMake  string
		wantModel string
	}{
		{"Toyota Land Cruiser 200 series Sahara", "Toyota", "Landcruiser"},
		{"LC79 single cab tray", "Toyota", "Landcruiser"},
		{"Isuzu DMAX LS-U crew cab", "Isuzu", "D-Max"},
		{"Mazda BT 50 XTR", "Mazda", "BT-50"},
		{"2019 Ford Ranger Wildtrak Bi-Turbo", "Ford", "Ranger"},
	}

	for _, tt := range tests {
		id := ResolveIdentity(tt.text)
		if id == nil {
			t.Fatalf("ResolveIdentity(%q) = nil", tt.text)
		}
		if id.Make != tt.wantMake || id.Model != tt.wantModel {
			t.Errorf("ResolveIdentity(%q) = %s/%s, want %s/%s",
				tt.text, id.Make, id.Model, tt.wantMake, tt.wantModel)
		}
	}
}

func TestResolveIdentity_UnknownVehicle(t *testing.T) {
	for _, text := range []string{
		"2015 Peugeot 308 Active hatch",
		"Car trailer, dual axle",
		"",
	} {
		if id := ResolveIdentity(text); id != nil {
			t.Errorf("ResolveIdentity(%q) = %+v, want nil", text, id)
		}
	}
}

func TestResolveIdentity_BadgeWordBoundaries(t *testing.T) {
	// "GX" must not fire inside "GXL", and "SR" must not fire inside "SR5".
	id := ResolveIdentity("Toyota Hilux SR5 dual cab")
	if id == nil {
		t.Fatal("expected resolved identity")
	}
	if id.Badge != "SR5" {
		t.Errorf("badge = %q, want SR5", id.Badge)
	}

	id = ResolveIdentity("Toyota Prado GX wagon")
	if id == nil {
		t.Fatal("expected resolved identity")
	}
	if id.Badge != "GX" {
		t.Errorf("badge = %q, want GX", id.Badge)
	}
}
