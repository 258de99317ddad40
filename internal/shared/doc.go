// Package shared holds helpers used by more than one seriesframe package.
//
// The testutil subpackage provides an in-memory slog handler so tests can
// assert on structured log output:
//
//	logger, handler := testutil.NewTestLogger(t)
//	svc := newThingUnderTest(logger)
//	...
//	testutil.AssertLogContains(t, handler, slog.LevelInfo, "export completed")
//
// Nothing here may import a domain package.
package shared
