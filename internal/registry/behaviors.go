package registry

import (
	_ "github.com/Alia5/keyflow/behavior/capslock"    // Register capslock behavior
	_ "github.com/Alia5/keyflow/behavior/keypress"    // Register key-press behavior
	_ "github.com/Alia5/keyflow/behavior/keyrepeat"   // Register key-repeat behavior
	_ "github.com/Alia5/keyflow/behavior/keytoggle"   // Register key-toggle behavior
	_ "github.com/Alia5/keyflow/behavior/layer"       // Register layer behaviors
	_ "github.com/Alia5/keyflow/behavior/leader"      // Register leader-key behavior
	_ "github.com/Alia5/keyflow/behavior/modmorph"    // Register mod-morph behavior
	_ "github.com/Alia5/keyflow/behavior/nonoverlap"  // Register non-overlap behavior
	_ "github.com/Alia5/keyflow/behavior/oneshot"     // Register one-shot behavior
	_ "github.com/Alia5/keyflow/behavior/snaptap"     // Register snap-tap behavior
	_ "github.com/Alia5/keyflow/behavior/tapdance"    // Register tap-dance behavior
	_ "github.com/Alia5/keyflow/behavior/transparent" // Register transparent and none behaviors
	_ "github.com/Alia5/keyflow/behavior/tristate"    // Register tri-state behavior
	_ "github.com/Alia5/keyflow/behavior/turbo"       // Register turbo-key behavior
)
