// Package frames owns the on-disk representation of a frame sequence.
//
// A Sequence is an ordered list of raster files inside one directory. Order is
// rotation-temporal order and is derived from the zero-padded names the
// decoder writes (frame_0001.jpg, frame_0002.jpg, ...), so lexical order and
// index order agree. The package also decodes and encodes rasters, converts
// them to grayscale for motion estimation, and defines the canonical names of
// extracted and exported frames.
package frames
