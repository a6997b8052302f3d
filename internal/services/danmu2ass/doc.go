// Package danmu2ass wraps the danmu2ass command line converter.
//
// The converter is run once per video as
//
//	danmu2ass [extra args] --no-web -o - <url>
//
// Standard output is the subtitle document and is returned verbatim. Standard
// error carries progress and warnings and is always handed back for logging.
// Failures are reported as *ConversionError tagged with services.ErrExternalTool,
// or services.ErrTimeout when the configured limit elapsed.
package danmu2ass
