// Package tables holds the BUFR Table B (element) and Table D (sequence) definitions.
//
// A Registry owns the entries of one master table version. Entries come from a Source,
// which yields in-memory records; parsing of on-disk table formats is left to sources
// such as sqlsource and pgsource, or to callers building a StaticSource.
//
// # Layering
//
// Local tables are usually layered over the WMO standard tables. Loading with merge
// set replaces duplicate descriptors, last write wins:
//
//	reg := tables.New(36)
//	if err := reg.Load(standard, true); err != nil {
//	    return err
//	}
//	if err := reg.Load(local, true); err != nil { // local entries override
//	    return err
//	}
//	reg.Freeze()
//
// # Version selection
//
// Select implements the exact-match-else-first policy: given registries for several
// master table versions it returns the one matching the message, or the first
// candidate when none does.
//
//	reg, exact, err := tables.Select([]*tables.Registry{v36, v35}, sec1.MasterVersion)
//
// Registries are safe for concurrent reads once loading is done.
package tables
