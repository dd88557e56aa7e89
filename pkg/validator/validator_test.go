package validator

import (
	"testing"

	"alerta-vecinal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertStructValidation(t *testing.T) {
	Init()

	valid := models.Alert{
		Title:       "Choque en la esquina",
		Description: "Dos vehículos involucrados",
		Category:    models.CategoryTrafficAccident,
		Latitude:    19.4326,
		Longitude:   -99.1332,
	}
	assert.NoError(t, Struct(valid))

	unknownCategory := valid
	unknownCategory.Category = "alien_invasion"
	assert.Error(t, Struct(unknownCategory))

	badLatitude := valid
	badLatitude.Latitude = 91
	assert.Error(t, Struct(badLatitude))

	longTitle := valid
	for len(longTitle.Title) <= 200 {
		longTitle.Title += " y más texto"
	}
	assert.Error(t, Struct(longTitle))
}

func TestValidateImage(t *testing.T) {
	maxSize := int64(5 << 20)

	assert.NoError(t, ValidateImage("image/jpeg", 1024, maxSize))
	assert.NoError(t, ValidateImage("image/png", maxSize, maxSize))

	err := ValidateImage("application/pdf", 1024, maxSize)
	require.ErrorIs(t, err, ErrNotAnImage)

	err = ValidateImage("image/jpeg", maxSize+1, maxSize)
	require.ErrorIs(t, err, ErrImageTooBig)
}

func TestValidateCoordinates(t *testing.T) {
	lat, lng := 19.4326, -99.1332
	assert.NoError(t, ValidateCoordinates(&lat, &lng))

	// Обе координаты либо ни одной
	assert.ErrorIs(t, ValidateCoordinates(&lat, nil), ErrNoCoordinate)
	assert.ErrorIs(t, ValidateCoordinates(nil, &lng), ErrNoCoordinate)

	outLat := 90.5
	assert.Error(t, ValidateCoordinates(&outLat, &lng))
	outLng := -180.5
	assert.Error(t, ValidateCoordinates(&lat, &outLng))
}
