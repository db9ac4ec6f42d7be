package frames

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMetadataXML = `<?xml version="1.0" encoding="UTF-8"?>
<dataset id="cal-2014-05">
  <framewidth>256</framewidth>
  <frameheight>256</frameheight>
  <payloadformat>4</payloadformat>
  <acqmode>1</acqmode>
  <counterstr>5</counterstr>
  <countersvc>6</countersvc>
  <countersic>7</countersic>
  <pixelmanversion> 2.2.2 </pixelmanversion>
  <lat>51.26</lat>
  <lon>-1.09</lon>
  <alt>0.1</alt>
  <polarity>0</polarity>
  <biasvoltage>100.0</biasvoltage>
  <ikrum>1</ikrum><disc>2</disc><preamp>3</preamp><buffanaloga>4</buffanaloga>
  <buffanalogb>5</buffanalogb><hist>6</hist><thl>7</thl><thlcoarse>8</thlcoarse>
  <vcas>9</vcas><fbk>10</fbk><gnd>11</gnd><ths>12</ths><biaslvds>13</biaslvds>
  <reflvds>14</reflvds>
  <mpxclock>10.0</mpxclock>
  <tpxclock>40.0</tpxclock>
  <bsactive>1</bsactive>
  <chipboardid>B06-W0212</chipboardid>
  <customname>LUCID TPX0</customname>
  <mpxtype>3</mpxtype>
  <sourceid>LUCID</sourceid>
</dataset>
`

func TestParseXMLMetadata(t *testing.T) {
	x, err := ParseXMLMetadata([]byte(sampleMetadataXML))
	require.NoError(t, err)
	m := x.Metadata()

	assert.Equal(t, "cal-2014-05", x.DatasetID())
	assert.Equal(t, 256, m.Width)
	assert.Equal(t, 4, m.PayloadFormat)
	assert.Equal(t, []int{5, 6, 7}, m.Counters)
	assert.Equal(t, "2.2.2", m.PixelmanVersion)
	assert.Equal(t, 51.26, m.Latitude)
	assert.Equal(t, 0, m.Polarity)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}, m.DACs())
	assert.True(t, m.BSActive)
	assert.Equal(t, "LUCID TPX0", m.CustomName)
	assert.Equal(t, 3, m.MpxType)
	assert.Equal(t, "LUCID", m.SourceID)

	m.Counters[0] = 99
	assert.Equal(t, 5, x.Metadata().Counters[0], "Metadata returns a copy")
}

func TestParseXMLMetadataDefaults(t *testing.T) {
	x, err := ParseXMLMetadata([]byte(`<dataset id="d"></dataset>`))
	require.NoError(t, err)
	assert.Equal(t, 1, x.Metadata().Polarity)
	assert.False(t, x.Metadata().BSActive)
}

func TestLoadXMLMetadata(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "metadata.xml")
	require.NoError(t, os.WriteFile(fname, []byte(sampleMetadataXML), 0o644))

	x, err := LoadXMLMetadata(fname)
	require.NoError(t, err)
	assert.Equal(t, fname, x.Filename)

	bad := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(bad, []byte("<dataset"), 0o644))
	_, err = LoadXMLMetadata(bad)
	assert.Error(t, err)

	_, err = LoadXMLMetadata(filepath.Join(dir, "missing.xml"))
	var openErr *ErrOpenFile
	assert.ErrorAs(t, err, &openErr)
}

func TestLoadUpdateMetadata(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "update.xml")
	doc := `<update id="iss-2013"><ismc>0</ismc><lat>1.5</lat><customname> TPX </customname><sourceid>ISS</sourceid></update>`
	require.NoError(t, os.WriteFile(fname, []byte(doc), 0o644))

	u, err := LoadUpdateMetadata(fname)
	require.NoError(t, err)
	assert.Equal(t, "iss-2013", u.DatasetID)
	assert.Equal(t, 1.5, u.Lat)
	assert.Equal(t, "TPX", u.CustomName)
	assert.Equal(t, "ISS", u.SourceID)
}

func TestAssembleMetadata(t *testing.T) {
	x, err := ParseXMLMetadata([]byte(sampleMetadataXML))
	require.NoError(t, err)

	frame := NewFrameRecord()
	frame.ID = 4
	frame.Pixels.Fill(1, 1, 256, 3)
	require.NoError(t, AssembleMetadata(x, frame))

	assert.Equal(t, 256, frame.Width)
	assert.Equal(t, "cal-2014-05", frame.DatasetID)
	assert.Equal(t, "B06-W0212", frame.ChipboardID)
	assert.Equal(t, 40.0, frame.TpxClock)
	assert.Len(t, frame.DACs(), NumDACs)
	assert.Equal(t, 1, frame.Occupancy())
	assert.Equal(t, 4, frame.ID)
}

func TestAssembleMetadataKeepsFrameTiming(t *testing.T) {
	fields := NewMetadataFields()
	fields.StartTime = 1
	fields.AcqTime = 2
	provider := StaticMetadata(fields)

	frame := NewFrameRecord()
	frame.StartTime = 1000
	frame.AcqTime = 0.02
	require.NoError(t, AssembleMetadata(provider, frame))
	assert.Equal(t, 1000.0, frame.StartTime)
	assert.Equal(t, 0.02, frame.AcqTime)

	bare := NewFrameRecord()
	require.NoError(t, AssembleMetadata(provider, bare))
	assert.Equal(t, 1.0, bare.StartTime)
	assert.Equal(t, 2.0, bare.AcqTime)
}

func TestAssembleMetadataWithoutDACs(t *testing.T) {
	frame := NewFrameRecord()
	dacs := make([]int, NumDACs)
	require.NoError(t, frame.SetDACs(dacs))

	require.NoError(t, AssembleMetadata(StaticMetadata(NewMetadataFields()), frame))
	assert.Equal(t, dacs, frame.DACs(), "a provider without DACs leaves them alone")
}
