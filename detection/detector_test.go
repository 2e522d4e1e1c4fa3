//nolint:paralleltest // Tests mutate the package-level registry and cache
package detection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mode and Confidence Tests ---

func TestMode_StringRoundTrip(t *testing.T) {
	for _, m := range []Mode{Passive, Safe, Full} {
		parsed, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}

	_, err := ParseMode("aggressive")
	require.Error(t, err)
	assert.Equal(t, "Mode(7)", Mode(7).String())
}

func TestConfidence_Ordering(t *testing.T) {
	assert.Less(t, Low, Medium)
	assert.Less(t, Medium, High)
	assert.Equal(t, Low, Confidence(0))
}

func TestDeviceInfo_String(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		device   DeviceInfo
	}{
		{
			name:     "Low confidence UART device",
			device:   DeviceInfo{Transport: "uart", Path: "/dev/ttyACM0", Confidence: Low},
			expected: "uart device at /dev/ttyACM0 (confidence: low)",
		},
		{
			name:     "High confidence I2C device",
			device:   DeviceInfo{Transport: "i2c", Path: "/dev/i2c-1", Confidence: High},
			expected: "i2c device at /dev/i2c-1 (confidence: high)",
		},
		{
			name:     "Unknown confidence device",
			device:   DeviceInfo{Transport: "uart", Path: "/dev/ttyACM1", Confidence: Confidence(99)},
			expected: "uart device at /dev/ttyACM1 (confidence: unknown)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.device.String())
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, Safe, opts.Mode)
	assert.Equal(t, 5*time.Second, opts.Timeout)
	assert.True(t, opts.EnableCache)
	assert.Equal(t, 30*time.Second, opts.CacheTTL)
	assert.NotEmpty(t, opts.Blocklist)
	assert.Contains(t, opts.KnownBoards, "CAFE:4001")
}

// --- Cache Tests ---

func withCacheClock(t *testing.T, now *time.Time) {
	t.Helper()
	clearCache()
	orig := cache.now
	cache.now = func() time.Time { return *now }
	t.Cleanup(func() {
		cache.now = orig
		clearCache()
	})
}

func TestCache_TTLExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	withCacheClock(t, &now)

	setCached("uart", []DeviceInfo{{Transport: "uart", Path: "/dev/ttyACM0", Confidence: High}})

	cached, found := getCached("uart", time.Minute)
	require.True(t, found)
	assert.Equal(t, "/dev/ttyACM0", cached[0].Path)

	now = now.Add(2 * time.Minute)
	cached, found = getCached("uart", time.Minute)
	assert.False(t, found)
	assert.Nil(t, cached)
}

func TestCache_IsolationAndClear(t *testing.T) {
	now := time.Unix(1000, 0)
	withCacheClock(t, &now)

	setCached("uart", []DeviceInfo{{Transport: "uart"}})
	setCached("i2c", []DeviceInfo{{Transport: "i2c"}})

	ClearDetectionCacheForTransport("uart")
	_, found := getCached("uart", time.Minute)
	assert.False(t, found)
	i2cCached, found := getCached("i2c", time.Minute)
	require.True(t, found)
	assert.Equal(t, "i2c", i2cCached[0].Transport)

	ClearDetectionCache()
	_, found = getCached("i2c", time.Minute)
	assert.False(t, found)
}

func TestCache_CopyBehavior(t *testing.T) {
	now := time.Unix(1000, 0)
	withCacheClock(t, &now)

	devices := []DeviceInfo{{Transport: "uart", Path: "/dev/ttyACM0"}}
	setCached("uart", devices)
	devices[0].Path = "/dev/ttyACM1"

	cached, found := getCached("uart", time.Minute)
	require.True(t, found)
	assert.Equal(t, "/dev/ttyACM0", cached[0].Path)

	cached[0].Path = "/dev/ttyACM2"
	cached2, _ := getCached("uart", time.Minute)
	assert.Equal(t, "/dev/ttyACM0", cached2[0].Path)
}

// --- Blocklist Tests ---

func TestIsBlocked(t *testing.T) {
	blocklist := []string{"1234:5678", "ABCD:EF01"}

	tests := []struct {
		name    string
		vidpid  string
		blocked bool
	}{
		{"Exact match", "1234:5678", true},
		{"Case insensitive", "abcd:ef01", true},
		{"Not in blocklist", "9999:9999", false},
		{"Empty string", "", false},
		{"Partial match", "1234:", false},
		{"With whitespace", "  1234:5678  ", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.blocked, IsBlocked(tc.vidpid, blocklist))
		})
	}
}

func TestIsKnownBoard(t *testing.T) {
	assert.True(t, IsKnownBoard("cafe:4001", DefaultKnownBoards()))
	assert.False(t, IsKnownBoard("0403:6001", DefaultKnownBoards()))
	assert.False(t, IsKnownBoard("", DefaultKnownBoards()))
}

func TestFormatVIDPID(t *testing.T) {
	assert.Equal(t, "CAFE:4001", FormatVIDPID("cafe", "4001"))
	assert.Equal(t, "", FormatVIDPID("", "4001"))
	assert.Equal(t, "", FormatVIDPID("zz", "4001"))
}

func TestParseVIDPID(t *testing.T) {
	tests := []struct {
		name       string
		descriptor string
		expected   string
	}{
		{"Simple format", "1234:5678", "1234:5678"},
		{"VID:PID format", "VID:1234 PID:5678", "1234:5678"},
		{"VID=PID= format", "VID=1234 PID=5678", "1234:5678"},
		{"Vendor Product format", "vendor=1234 product=5678", "1234:5678"},
		{"Mixed case", "vid:abcd pid:ef01", "ABCD:EF01"},
		{"Invalid format", "not a valid descriptor", ""},
		{"Empty string", "", ""},
		{"Only VID", "VID:1234", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseVIDPID(tc.descriptor))
		})
	}
}

func TestExtractHex(t *testing.T) {
	assert.Equal(t, "1234", extractHex(" 1234 abc"))
	assert.Equal(t, "0", extractHex("0x1234"))
	assert.Equal(t, "", extractHex("xyz"))
}

func TestIsPathIgnored(t *testing.T) {
	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		expected    bool
	}{
		{"empty device path", "", []string{"/dev/ttyACM0"}, false},
		{"empty ignore list", "/dev/ttyACM0", nil, false},
		{"exact match", "/dev/ttyACM0", []string{"/dev/ttyACM0"}, true},
		{"no match", "/dev/ttyACM0", []string{"/dev/ttyACM1"}, false},
		{"unclean path", "/dev/ttyACM0", []string{"/dev/../dev/ttyACM0"}, true},
		{"windows case", "COM3", []string{"com3"}, true},
		{"skips empty entries", "/dev/ttyACM0", []string{"", "/dev/ttyACM0"}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsPathIgnored(tc.devicePath, tc.ignorePaths))
		})
	}
}

// --- Registry Tests ---

type stubDetector struct {
	err       error
	transport string
	devices   []DeviceInfo
	calls     int
}

func (s *stubDetector) Detect(_ context.Context, _ *Options) ([]DeviceInfo, error) {
	s.calls++
	return s.devices, s.err
}

func (s *stubDetector) Transport() string {
	return s.transport
}

type blockingDetector struct{}

func (*blockingDetector) Detect(ctx context.Context, _ *Options) ([]DeviceInfo, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (*blockingDetector) Transport() string {
	return "blocking"
}

func withRegistry(t *testing.T, detectors ...Detector) {
	t.Helper()
	orig := registry
	registry = nil
	for _, d := range detectors {
		RegisterDetector(d)
	}
	t.Cleanup(func() { registry = orig })
}

func TestGetDetectors_FilterByTransport(t *testing.T) {
	withRegistry(t, &stubDetector{transport: "uart"}, &stubDetector{transport: "i2c"})

	assert.Len(t, getDetectors(nil), 2)
	assert.Len(t, getDetectors([]string{"uart"}), 1)
	assert.Empty(t, getDetectors([]string{"usb"}))
}

func TestDetectAll_NoDetectors(t *testing.T) {
	withRegistry(t)

	opts := DefaultOptions()
	opts.Transports = []string{"nonexistent"}

	_, err := DetectAll(context.Background(), &opts)
	require.ErrorIs(t, err, ErrNoDetectors)
}

func TestDetectAll_Timeout(t *testing.T) {
	withRegistry(t, &blockingDetector{})

	opts := DefaultOptions()
	opts.Timeout = 10 * time.Millisecond
	opts.EnableCache = false

	_, err := DetectAll(context.Background(), &opts)
	require.ErrorIs(t, err, ErrDetectionTimeout)
}

func TestDetectAll_NothingFound(t *testing.T) {
	withRegistry(t, &stubDetector{transport: "uart", err: ErrNoDevicesFound})

	opts := DefaultOptions()
	opts.EnableCache = false

	_, err := DetectAll(context.Background(), &opts)
	require.ErrorIs(t, err, ErrNoDevicesFound)
}

func TestDetectAll_UsesAndFiltersCache(t *testing.T) {
	now := time.Unix(1000, 0)
	withCacheClock(t, &now)

	uart := &stubDetector{transport: "uart", devices: []DeviceInfo{
		{Transport: "uart", Path: "/dev/ttyACM0", Confidence: High},
		{Transport: "uart", Path: "/dev/ttyACM1", Confidence: Medium},
	}}
	withRegistry(t, uart)

	opts := DefaultOptions()
	devices, err := DetectAll(context.Background(), &opts)
	require.NoError(t, err)
	assert.Len(t, devices, 2)

	opts.IgnorePaths = []string{"/dev/ttyACM0"}
	devices, err = DetectAll(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "/dev/ttyACM1", devices[0].Path)
	assert.Equal(t, 1, uart.calls)
}

func TestDetectFirst_PrefersConfidenceThenUART(t *testing.T) {
	withRegistry(t,
		&stubDetector{transport: "i2c", devices: []DeviceInfo{
			{Transport: "i2c", Path: "/dev/i2c-1", Confidence: High},
		}},
		&stubDetector{transport: "uart", devices: []DeviceInfo{
			{Transport: "uart", Path: "/dev/ttyUSB0", Confidence: Low},
			{Transport: "uart", Path: "/dev/ttyACM0", Confidence: High},
		}},
	)

	opts := DefaultOptions()
	opts.EnableCache = false

	best, err := DetectFirst(context.Background(), &opts)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", best.Path)
}
