package utils

import "testing"

type farmForm struct {
	FarmId  string `validate:"required,farmid"`
	Country string `validate:"required,len=2"`
}

func TestValidateStructFarmIdTag(t *testing.T) {
	ok := farmForm{FarmId: "FR_2022_5f0c6a3e-5d1b-4b7a-9a57-0d7c1b8e2f10", Country: "FR"}
	if err := ValidateStruct(ok); err != nil {
		t.Fatalf("expected valid form, got %v", err)
	}

	bad := farmForm{FarmId: "FR-2022", Country: "FRA"}
	err := ValidateStruct(bad)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	fields := ProcessValidationErrors(err)
	if fields["FarmId"] != "farmid" {
		t.Fatalf("expected farmid tag on FarmId, got %v", fields)
	}
	if fields["Country"] != "len" {
		t.Fatalf("expected len tag on Country, got %v", fields)
	}
}

func TestProcessValidationErrorsIgnoresOtherErrors(t *testing.T) {
	if got := ProcessValidationErrors(ErrorRecordNotFound); got != nil {
		t.Fatalf("expected nil map, got %v", got)
	}
}
