package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ClinicSettings holds the four per-clinic configuration blobs. Each blob is
// stored as the JSON text the frontend sent; the backend validates syntax on
// write and returns it verbatim on read.
type ClinicSettings struct {
	ClinicID  int64     `json:"clinic_id"`
	Identity  *string   `json:"identity"`
	Hours     *string   `json:"hours"`
	Insurance *string   `json:"insurance"`
	Chatbot   *string   `json:"chatbot"`
	UpdatedAt time.Time `json:"updated_at"`
}

func SettingsByClinic(ctx context.Context, db *gorm.DB, clinicID int64) (*ClinicSettings, error) {
	var s ClinicSettings
	err := db.WithContext(ctx).Raw(`
		SELECT clinic_id, identity, hours, insurance, chatbot, updated_at
		FROM clinic_settings WHERE clinic_id = ?
	`, clinicID).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ClinicID == 0 {
		// A clinic provisioned before the settings row existed still reads
		// as an empty settings set.
		return &ClinicSettings{ClinicID: clinicID}, nil
	}
	return &s, nil
}

// SettingsPatch carries the blobs to upsert. A nil field is untouched.
type SettingsPatch struct {
	Identity  *string `json:"identity"`
	Hours     *string `json:"hours"`
	Insurance *string `json:"insurance"`
	Chatbot   *string `json:"chatbot"`
}

// Validate rejects blobs that are not syntactically valid JSON.
func (p SettingsPatch) Validate() error {
	check := func(name string, v *string) error {
		if v == nil || *v == "" {
			return nil
		}
		if !json.Valid([]byte(*v)) {
			return fmt.Errorf("field %s is not valid JSON", name)
		}
		return nil
	}
	if err := check("identity", p.Identity); err != nil {
		return err
	}
	if err := check("hours", p.Hours); err != nil {
		return err
	}
	if err := check("insurance", p.Insurance); err != nil {
		return err
	}
	return check("chatbot", p.Chatbot)
}

// UpsertSettings writes the provided blobs, keeping existing values for nil
// fields.
func UpsertSettings(ctx context.Context, db *gorm.DB, clinicID int64, p SettingsPatch) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO clinic_settings (clinic_id, identity, hours, insurance, chatbot, updated_at)
		VALUES (?, ?, ?, ?, ?, now())
		ON CONFLICT (clinic_id) DO UPDATE SET
			identity  = COALESCE(EXCLUDED.identity, clinic_settings.identity),
			hours     = COALESCE(EXCLUDED.hours, clinic_settings.hours),
			insurance = COALESCE(EXCLUDED.insurance, clinic_settings.insurance),
			chatbot   = COALESCE(EXCLUDED.chatbot, clinic_settings.chatbot),
			updated_at = now()
	`, clinicID, p.Identity, p.Hours, p.Insurance, p.Chatbot).Error
}
