// Package niforms renders [ni-form] shortcodes into HTML forms and routes
// their submissions to pluggable processors.
//
// A form is identified by a hash of its shortcode attributes, body, tag and
// page. Rendering caches the form under that hash and embeds the hash in a
// hidden field; the submit handler loads the cached form back, so a
// processor always sees the form exactly as it was rendered.
//
// # Core Concepts
//
// Processors are registered under a code and selected per form with the
// form-processor attribute:
//
//	reg.RegisterProcessor("contact", &Contact{})
//
//	[ni-form form-processor="contact" success-message="Thanks!"]
//	<input type="email" name="email">
//	[/ni-form]
//
// A processor has two phases. Process decides whether the submission passed;
// Success produces the response (a Message, HTML replacement, Redirect or
// Bool). The form's success-message and error-message attributes are used
// when the response carries no text of its own.
//
// # Lifecycle Events
//
// Handlers hook into three points:
//   - preform: adjust a form before it is cached and rendered
//   - preprocess: inspect a submission before the processor runs
//   - postprocess: observe the final result
//
// A preprocess handler can fail a submission or report a silent failure.
// A silent failure skips Process but still answers with Success, so bots
// caught by the honeypot addon cannot tell they were caught.
//
// # Security Model
//
// Cached forms are sealed with the configured key:
//   - Signed (default): HMAC-authenticated msgpack, readable but tamper-proof
//   - Encrypted: AES-GCM, opaque to anyone reading the cache directory
//
// The cache directory gets a deny-all .htaccess and an empty index.html in
// case it sits under a web root.
//
// # Logging
//
// Every request gets a Logger that records entries together with the
// current stage and handler. Entries are kept for the request (see
// ProcessResult.Logs) and mirrored to the registry's zap logger.
//
// # Errors
//
// Sentinel errors are provided for common failure cases:
//   - ErrFormNotFound: the hash is not in the cache (expired or purged)
//   - ErrCorruptForm: the cached file is unreadable or tampered with
//   - ErrProcessorNotFound: the form names an unregistered processor
//
// Use IsNotFound, IsCorrupt and IsBadRequest to classify errors.
// Registry.OnError maps them to HTTP responses and can be replaced.
package niforms
