// Package img reads and patches VER2 sector archives (the format of
// gta3.img and friends).
//
// An archive starts with an 8-byte header, the ASCII tag "VER2" followed by
// a little-endian entry count, and a directory of fixed 32-byte records:
//
//	offset          u32  first sector of the payload
//	streaming size  u16  payload length in sectors
//	archive size    u16  mirrors streaming size
//	name            24   ASCII, NUL-padded
//
// Sectors are 2048 bytes. Payloads live anywhere after the directory and
// are not sorted relative to it.
//
// [Archive] parses the directory once and serves lookups from memory.
// Every extract or replace opens the file for the duration of the call.
// Replace never relocates an entry: a payload that would run into the next
// entry's sectors is rejected with [ErrOverflow] before anything is written.
// The payload write and the directory update are two separate writes; when
// Replace reports an I/O error the file may hold either, and callers should
// [Archive.Reload] and verify before continuing.
//
// The engine does not lock the file unless [WithAdvisoryLock] is set;
// callers must otherwise serialize writers themselves.
package img
