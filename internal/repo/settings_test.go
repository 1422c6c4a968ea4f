package repo

import "testing"

func TestSettingsPatchValidate(t *testing.T) {
	valid := `{"name": "Clínica Sorriso", "logo": null}`
	broken := `{"name": oops`
	empty := ""

	tests := []struct {
		name    string
		patch   SettingsPatch
		wantErr bool
	}{
		{"all nil", SettingsPatch{}, false},
		{"valid identity", SettingsPatch{Identity: &valid}, false},
		{"empty string allowed", SettingsPatch{Hours: &empty}, false},
		{"broken identity", SettingsPatch{Identity: &broken}, true},
		{"broken chatbot", SettingsPatch{Chatbot: &broken}, true},
		{"mixed valid and broken", SettingsPatch{Identity: &valid, Insurance: &broken}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
