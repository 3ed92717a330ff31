package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/imgaudit/internal/domain/entities"
)

// TestEnginesOnSetuidBinary runs both engines over one image holding a setuid /bin/true and a sticky /tmp
func TestEnginesOnSetuidBinary(t *testing.T) {
	f := newCFAFixture()
	f.fs.add("bin", entities.ModeDirectory|0o755)
	bin := f.fs.add("bin/true", entities.ModeRegular|0o4755)
	f.classify.mimes[bin] = "application/x-executable"
	f.inspector.flags[bin] = []string{entities.FlagNoRELRO, entities.FlagCanary, entities.FlagNoPIE, entities.FlagNXEnabled}
	f.fs.add("tmp", entities.ModeDirectory|0o1777)

	image := entities.NewFilesystemDescriptor("core-image", testRoot)
	cfa := f.engine(entities.AnalyzerConfig{})
	fsa := newFSAEngine(f.fs, f.reports, entities.AnalyzerConfig{})

	_, err := cfa.ProcessFilesystem(context.Background(), image)
	require.NoError(t, err)
	_, err = fsa.ProcessFilesystem(context.Background(), image)
	require.NoError(t, err)

	cfaFound := cfa.Findings()
	assert.Equal(t, []string{"/bin/true"}, cfaFound[CategoryNoRELRO])
	assert.Equal(t, []string{"/bin/true"}, cfaFound[CategoryNoPIE])
	assert.Empty(t, cfaFound[CategoryNoCanary])
	assert.Empty(t, cfaFound[CategoryNoNX])

	fsaFound := fsa.Findings()
	assert.Equal(t, []string{"/bin/true"}, fsaFound[CategorySetuid])
	assert.Empty(t, fsaFound[CategoryNoStickyBit])

	// no recorded path keeps the mount point
	for _, found := range []map[string][]string{cfaFound, fsaFound} {
		for _, paths := range found {
			for _, p := range paths {
				assert.False(t, strings.HasPrefix(p, testRoot), p)
			}
		}
	}
	for _, line := range f.reports.body(FSAEngineName) {
		assert.NotContains(t, line, testRoot)
	}
}
