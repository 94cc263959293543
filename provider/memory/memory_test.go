package memory

import (
	"testing"

	"github.com/simple-workflow/swf/provider/test"
)

func Test_MemoryProvider(t *testing.T) {
	test.ProviderTest(t, func() test.TestProvider {
		return NewMemoryProvider()
	}, nil)
}
