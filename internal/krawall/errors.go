package krawall

import "errors"

// Sentinel errors returned (wrapped with fmt.Errorf("%w: ...")) by the
// decoder and both writers. They replace the reference tool's integer
// return codes: ErrIO ~ 2, ErrOffsetsNotFound/ErrUnsupported ~ 3,
// ErrTooManyInstruments/ErrTooManySamples ~ 10.
var (
	// ErrOffsetsNotFound names the case where discovery could not locate
	// a usable sample list or any module. discover.Search does not return
	// it; it reports that case through Result.Success.
	ErrOffsetsNotFound = errors.New("krawall: offsets not found")

	// ErrUnsupported marks a module or pattern shape the target format
	// cannot represent: an instrument-based module handed to the S3M
	// writer, a first pattern with other than 64 rows for S3M, or a
	// malformed record the decoder refuses to trust.
	ErrUnsupported = errors.New("krawall: unsupported")

	// ErrTooManyInstruments is returned by the XM writer when trimming
	// is disabled and more than 255 instruments are referenced, or when
	// trimming itself would exceed 254 slots.
	ErrTooManyInstruments = errors.New("krawall: too many instruments")

	// ErrTooManySamples is the S3M writer's analogue of
	// ErrTooManyInstruments.
	ErrTooManySamples = errors.New("krawall: too many samples")

	// ErrMissingInstruments is returned when a module is instrument-based
	// but no instrument offset table was supplied.
	ErrMissingInstruments = errors.New("krawall: missing instrument list")

	// ErrIO marks an output failure. cmd/unkrawerter wraps an output-file
	// creation error with it; xm.Write and s3m.Write return write errors
	// without wrapping them in ErrIO.
	ErrIO = errors.New("krawall: io error")
)
