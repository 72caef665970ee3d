/*
Package slotdb persists one JSON-like document per name in a store that only
offers flat, independently addressable string slots (browser localStorage,
a Bolt bucket, a key-value service with a per-value size limit).

The document lives in memory as a [Document]; every mutation re-encodes
the whole of it and writes it back as a metadata slot plus numbered chunk
slots.

# Slot layout

For database name N:

	db_N       {"chunkSize":1000,"totalChunks":3}
	db_N_0     characters 0..999 of the encoded document
	db_N_1     characters 1000..1999
	db_N_2     the remainder

Chunk lengths are counted in characters (runes), so a chunk never splits a
UTF-8 sequence. Concatenating chunks 0..totalChunks-1 gives back exactly the
encoding written by the last successful save.

# Encoding

Documents are encoded as JSON with object keys sorted at every level, so
equal documents produce identical slots. The empty document encodes to the
empty string, so an empty database has totalChunks = 0 and no chunk slots.
Values are limited to null, bool,
finite numbers, valid UTF-8 strings, arrays and string-keyed objects;
[ValueOf] rejects everything else, cyclic containers included, before it
can reach the document.

# Save

 1. Write the metadata slot.
 2. Delete every existing chunk slot db_N_<index>.
 3. Write the new chunk slots.

After a save no chunk slot at or beyond totalChunks remains. Keys under
db_N_ that do not end in a canonical decimal index (db_N_b, db_N_01) belong
to other names and are left alone. A name ending in _<index> is rejected by
[Open]: the metadata slot of "a_1" would be chunk 1 of "a".

# Load and recovery

Load reads the metadata, then every chunk below totalChunks, joins and
decodes them. Absent metadata, corrupt metadata, absent chunks and an
undecodable join all end the same way: the database starts from an empty
document, and the stale slots stay in the store until the next save
replaces them. None of this is returned as an error; pass
[Options.OnRecover] to observe it.

A crash between step 1 and step 3 of a save leaves metadata announcing
chunks that were never written. The next load treats that as corruption and
starts empty.

Store errors (I/O) are different: they are returned from [Open], [DB.Reload]
and the mutating calls, and a failed mutation leaves the in-memory document
as it was.
*/
package slotdb
