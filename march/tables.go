package march

import "sync"

var (
	once2, once3   sync.Once
	table2, table3 *Table
)

// Table2 returns the process-wide marching-squares table (N=2), building
// it on first use. Safe for concurrent read thereafter (spec.md §5).
func Table2() *Table {
	once2.Do(func() { table2 = Build(2) })
	return table2
}

// Table3 returns the process-wide marching-cubes table (N=3), building it
// on first use. Safe for concurrent read thereafter (spec.md §5).
func Table3() *Table {
	once3.Do(func() { table3 = Build(3) })
	return table3
}
