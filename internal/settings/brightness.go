package settings

import (
	"go.uber.org/zap"

	"github.com/cointhing/cointhing/internal/guard"
	"github.com/cointhing/cointhing/internal/logging"
)

// LoadBrightness re-reads the brightness file. A missing, unparsable or out
// of range value yields MaxBrightness.
func (s *Store) LoadBrightness() {
	defer guard.Acquire(&s.mu).Release()

	data, exists, err := readFileIfExists(s.fs, s.brightnessFile)
	switch {
	case !exists:
		logging.LogFileEvent(s.brightnessFile, "missing")
		s.brightness = MaxBrightness
		return
	case err != nil:
		logging.Warn("Failed to read brightness file", zap.Error(err))
		s.brightness = MaxBrightness
		return
	}

	b, ok := decodeBrightness(data)
	if !ok {
		logging.Warn("Invalid brightness file, using maximum",
			zap.String("path", s.brightnessFile),
		)
		logging.LogPayload("Brightness file contents", data)
	}
	s.brightness = b
	logging.LogFileEvent(s.brightnessFile, "read", zap.Uint8("brightness", b))
}

// SetBrightness applies and persists b if it is within
// [MinBrightness, MaxBrightness]. Otherwise nothing changes. The result
// reports whether b was accepted.
func (s *Store) SetBrightness(b uint8) bool {
	if !ValidBrightness(b) {
		logging.Debug("Ignoring out-of-range brightness", zap.Uint8("brightness", b))
		return false
	}

	defer guard.Acquire(&s.mu).Release()
	s.brightness = b

	data := EncodeBrightness(b)
	if err := writeFileAtomic(s.fs, s.brightnessFile, data); err != nil {
		logging.Warn("Brightness not persisted", zap.Error(err))
		return true
	}
	logging.LogFileEvent(s.brightnessFile, "written", zap.Uint8("brightness", b))
	return true
}

// Brightness returns the current screen brightness.
func (s *Store) Brightness() uint8 {
	defer guard.Acquire(&s.mu).Release()
	return s.brightness
}
