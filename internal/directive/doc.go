// Package directive parses the comment directives that mark regions.
//
// # Directive Format
//
// All directives follow the format:
//
//	//nopanic:<directive> [- reason]
//
// Two directives exist:
//
//	//nopanic:deny            # restricted region
//	//nopanic:allow           # suppression region
//	//nopanic:allow - reason  # suppression region with an audit note
//
// # Placement
//
// A directive binds to the block statement that starts on the same line or
// on the line below it:
//
//	func handle() {
//	    //nopanic:deny
//	    {
//	        step()
//	        //nopanic:allow - validated above
//	        {
//	            mustParse()
//	        }
//	    }
//	}
//
// A deny directive only produces a region when its block is a direct
// statement of a function body. Entries that never bind to a node are
// returned by [Map.Unused] so the analyzer can report them.
package directive
