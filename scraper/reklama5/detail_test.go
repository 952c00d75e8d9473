package reklama5

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "reklama5-scraper/pkg/errors"
)

const detailPage = `<html><body>
<div class="row mt-3">
  <div class="col-5">Марка:</div><div class="col-7">Volkswagen</div>
  <div class="col-5">Модел</div><div class="col-7">Golf</div>
  <div class="col-5">Година:</div><div class="col-7">2016</div>
  <div class="col-5">Гориво:</div><div class="col-7">Дизел</div>
  <div class="col-5">Километри:</div><div class="col-7">185 000 km</div>
  <div class="col-5">Менувач:</div><div class="col-7">Рачен</div>
  <div class="col-5">Регистрирана до:</div><div class="col-7">05.2025</div>
  <div class="col-5">Сила на моторот:</div><div class="col-7">81 kW / 110 КС</div>
  <div class="col-5">Класа на емисија:</div><div class="col-7">Euro 6</div>
  <div class="col-5">Непознато:</div><div class="col-7">x</div>
</div>
</body></html>`

func TestParseDetailPage(t *testing.T) {
	d, err := ParseDetailPage(strings.NewReader(detailPage))
	require.NoError(t, err)

	assert.Equal(t, "Volkswagen", d.Make)
	assert.Equal(t, "Golf", d.Model)
	assert.Equal(t, 2016, *d.Year)
	assert.Equal(t, "Дизел", d.Fuel)
	assert.Equal(t, 185000, *d.KM)
	assert.Equal(t, "Рачен", d.Gearbox)
	assert.Equal(t, "05.2025", d.RegUntil)
	assert.Equal(t, 81, *d.KW)
	assert.Equal(t, 110, *d.PS)
	assert.Equal(t, "Euro 6", d.EmissionClass)
	assert.Empty(t, d.Color)
}

func TestParseDetailPageWithoutTable(t *testing.T) {
	_, err := ParseDetailPage(strings.NewReader(`<html><body><h1>Огласот е избришан</h1></body></html>`))
	assert.True(t, apperrors.IsParse(err))
}

func TestParsePowerText(t *testing.T) {
	kw, ps := ParsePowerText("100 KW (136 HP)")
	assert.Equal(t, 100, *kw)
	assert.Equal(t, 136, *ps)

	kw, ps = ParsePowerText("77 кв")
	assert.Equal(t, 77, *kw)
	assert.Nil(t, ps)
}
