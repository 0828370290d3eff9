package ocr

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ocrLog is the sub-logger for the ocr package; every entry carries a
// module=ocr field so pipeline traces can be filtered per stage.
var ocrLog zerolog.Logger = log.With().Str("module", "ocr").Logger()
