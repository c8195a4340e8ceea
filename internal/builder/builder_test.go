package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSetupDOCXLicenseWithoutKey(t *testing.T) {
	assert.False(t, setupDOCXLicense("", zap.NewNop()))
}
