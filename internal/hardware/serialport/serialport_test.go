package serialport

import (
	"io"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/sensorapp/internal/sensor"
	"github.com/luki/sensorapp/internal/sink"
)

func TestParseLine(t *testing.T) {
	f, err := ParseLine(" accel, 0.1,-0.2 ,9.8\r")
	require.NoError(t, err)
	assert.Equal(t, Frame{Kind: "accel", Values: []float64{0.1, -0.2, 9.8}}, f)

	f, err = ParseLine("BARO,101.3")
	require.NoError(t, err)
	assert.Equal(t, "baro", f.Kind)

	_, err = ParseLine("")
	assert.ErrorIs(t, err, ErrSkip)
	_, err = ParseLine("# boot v1.2")
	assert.ErrorIs(t, err, ErrSkip)

	for _, bad := range []string{"sonar,1", "accel,1,2", "baro,high", "gyro,1,2,3,4"} {
		_, err := ParseLine(bad)
		assert.Error(t, err, bad)
	}
}

// board returns a board reading from a pipe the test writes to.
func board(t *testing.T, clk clock.Clock) (*Board, *io.PipeWriter) {
	t.Helper()
	r, w := io.Pipe()
	b := NewBoard(r, clk, nil)
	t.Cleanup(func() {
		w.Close()
		b.Close()
	})
	return b, w
}

func writeLine(t *testing.T, w io.Writer, line string) {
	t.Helper()
	_, err := io.WriteString(w, line+"\n")
	require.NoError(t, err)
}

func TestBoardFeedsSubscribedSensors(t *testing.T) {
	clk := clock.NewMock()
	b, w := board(t, clk)
	mem := &sink.Memory{}

	accel := sensor.NewAccelerometer(b, mem, sensor.WithClock(clk), sensor.WithInterval(0))
	baro := sensor.NewBarometer(b.Altimeter(), mem, sensor.WithClock(clk))
	require.True(t, accel.IsAvailable())
	accel.StartReporting()
	baro.StartReporting()

	writeLine(t, w, "accel,0.1,-0.2,9.8")
	writeLine(t, w, "gyro,1,2,3")
	writeLine(t, w, "garbage")
	writeLine(t, w, "baro,100.0")
	writeLine(t, w, "baro,99.0")
	// Writes to a pipe return once read, so one more line flushes the last.
	writeLine(t, w, "#")

	recs := mem.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, sensor.Axes{X: 0.1, Y: -0.2, Z: 9.8}, recs[0].Data)
	alt, _ := recs[1].Value("relativeAltitude")
	assert.Zero(t, alt)
	alt, _ = recs[2].Value("relativeAltitude")
	assert.Greater(t, alt, 0.0)
}

func TestBoardThrottlesToInterval(t *testing.T) {
	clk := clock.NewMock()
	b, w := board(t, clk)
	mem := &sink.Memory{}

	gyro := sensor.NewGyroscope(b, mem, sensor.WithClock(clk))
	gyro.StartReporting()

	writeLine(t, w, "gyro,1,0,0")
	writeLine(t, w, "gyro,2,0,0")
	// Flush gyro,2 through dispatch before the clock moves.
	writeLine(t, w, "#")
	clk.Add(100 * time.Millisecond)
	writeLine(t, w, "gyro,3,0,0")
	writeLine(t, w, "#")

	recs := mem.Records()
	require.Len(t, recs, 2)
	x, _ := recs[1].Value("x")
	assert.Equal(t, 3.0, x)

	gyro.StopReporting()
	writeLine(t, w, "gyro,4,0,0")
	writeLine(t, w, "#")
	assert.Equal(t, 2, mem.Len())
}

func TestBoardUnavailableAfterClose(t *testing.T) {
	r, w := io.Pipe()
	b := NewBoard(r, clock.NewMock(), nil)
	assert.True(t, b.Gyro().Available())

	w.Close()
	<-b.done
	assert.False(t, b.Gyro().Available())
	assert.NoError(t, b.Err())
	assert.NoError(t, b.Close())
}
