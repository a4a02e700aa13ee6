// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

// Engine recognizes words in one page image. Implementations must be
// safe for concurrent use; the indexer fans pages out across workers.
type Engine interface {
	// Words runs recognition over an encoded page image (PNG, JPEG or
	// TIFF) and returns the raw word records. Page numbers on the
	// returned records are unset; the indexer assigns them.
	Words(img []byte) ([]WordRecord, error)
}
