package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/kjq/internal/parser"
	"github.com/aledsdavies/kjq/internal/val"
)

func run(t *testing.T, src string, initial *val.Val) *val.Val {
	t.Helper()
	tree, perr := parser.Parse(src)
	require.Nil(t, perr, "parse error for %q: %v", src, perr)
	e := New(nil)
	result, _ := e.Eval(tree.Arena, tree.Root, initial, Vars{})
	return result
}

func runJSON(t *testing.T, src, inputJSON string) *val.Val {
	t.Helper()
	initial := val.Null
	if inputJSON != "" {
		v, err := val.ParseJSON(inputJSON)
		require.NoError(t, err)
		initial = v
	}
	return run(t, src, initial)
}

func assertJSON(t *testing.T, want string, got *val.Val) {
	t.Helper()
	assert.JSONEq(t, want, string(val.WriteJSON(got, false)))
}

func TestMapLiteralFieldPipe(t *testing.T) {
	v := run(t, "{a: 1, b: 2} | .b", val.Null)
	assertJSON(t, `2`, v)
}

func TestPipeAssociativity(t *testing.T) {
	grouped := run(t, "({a: 1} | .a) | . + 1", val.Null)
	chained := run(t, "{a: 1} | (.a | . + 1)", val.Null)
	assert.True(t, grouped.Equal(chained))
	assertJSON(t, `2`, grouped)
}

func TestDotIsIdentity(t *testing.T) {
	v := runJSON(t, ".", `{"a":1}`)
	assertJSON(t, `{"a":1}`, v)
}

func TestFieldAccessChain(t *testing.T) {
	v := runJSON(t, ".a.b.c", `{"a":{"b":{"c":42}}}`)
	assertJSON(t, `42`, v)
}

func TestFieldAccessOnNullIsNull(t *testing.T) {
	v := runJSON(t, ".missing.deeper", `null`)
	assertJSON(t, `null`, v)
}

func TestFieldAccessOnListErrors(t *testing.T) {
	v := runJSON(t, ".x", `[1,2,3]`)
	assert.True(t, v.IsErr())
}

func TestBracketSliceForwardAndReverse(t *testing.T) {
	v := runJSON(t, ".[/2:]", `[1,2,3,4,5]`)
	assertJSON(t, `[4,5]`, v)

	v = runJSON(t, ".[1:3]", `[1,2,3,4,5]`)
	assertJSON(t, `[2,3]`, v)

	v = runJSON(t, ".[/1]", `[1,2,3]`)
	assertJSON(t, `2`, v)
}

func TestSliceWholeEqualsIdentity(t *testing.T) {
	v := runJSON(t, ".[:]", `[1,2,3]`)
	assertJSON(t, `[1,2,3]`, v)
}

func TestSliceOutOfBoundsClamps(t *testing.T) {
	v := runJSON(t, ".[0:100]", `[1,2,3]`)
	assertJSON(t, `[1,2,3]`, v)
}

func TestIndexOutOfBoundsIsErr(t *testing.T) {
	v := runJSON(t, ".[10]", `[1,2,3]`)
	assert.True(t, v.IsErr())
}

func TestCoalesceOnlyFallsThroughOnNull(t *testing.T) {
	v := runJSON(t, ".missing ?? 5", `{}`)
	assertJSON(t, `5`, v)

	v = runJSON(t, ".present ?? 5", `{"present": 1}`)
	assertJSON(t, `1`, v)
}

func TestDivideByZero(t *testing.T) {
	v := run(t, "1/0", val.Null)
	require.True(t, v.IsErr())
	assert.Equal(t, "divide by zero", v.Str())
}

func TestArithmeticRequiresNumbers(t *testing.T) {
	v := runJSON(t, `. + 1`, `"x"`)
	assert.True(t, v.IsErr())
}

func TestBooleanOperators(t *testing.T) {
	v := run(t, "true and false", val.Null)
	assertJSON(t, `false`, v)
	v = run(t, "true or false", val.Null)
	assertJSON(t, `true`, v)
	v = run(t, "not true", val.Null)
	assertJSON(t, `false`, v)
}

func TestEqualityAndOrdering(t *testing.T) {
	v := run(t, "1 < 2", val.Null)
	assertJSON(t, `true`, v)
	v = run(t, `{a:1,b:2} == {b:2,a:1}`, val.Null)
	assertJSON(t, `true`, v)
}

func TestLetBindingExtendsPipeScope(t *testing.T) {
	v := run(t, "100 | let a = 4 | . + a + 7", val.Null)
	assertJSON(t, `111`, v)
}

func TestLetBindingVisibleInsideFormatString(t *testing.T) {
	v := run(t, "let a = 42 | 'a is {a}'", val.Null)
	assert.Equal(t, "a is 42", v.Str())
}

func TestMapLiteralSpreadAndDelete(t *testing.T) {
	v := runJSON(t, `{*., -"b"}`, `{"a":1,"b":2,"c":3}`)
	assertJSON(t, `{"a":1,"c":3}`, v)
}

func TestListLiteralSpread(t *testing.T) {
	v := run(t, "[1, *[2,3], 4]", val.Null)
	assertJSON(t, `[1,2,3,4]`, v)
}

func TestFormatStringRendersExprs(t *testing.T) {
	v := runJSON(t, `"hello {.name}, age {.age}"`, `{"name":"Ada","age":36}`)
	assert.Equal(t, "hello Ada, age 36", v.Str())
}

func TestUndefinedVariableIsErr(t *testing.T) {
	v := run(t, "x", val.Null)
	assert.True(t, v.IsErr())
}

func TestUnknownFunctionIsErr(t *testing.T) {
	v := run(t, "nope()", val.Null)
	require.True(t, v.IsErr())
	assert.Contains(t, v.Str(), "nope")
}

func TestMapFilterSortGroupBuiltins(t *testing.T) {
	v := run(t, "[3,1,2] | sort()", val.Null)
	assertJSON(t, `[1,2,3]`, v)

	v = run(t, "[1,2,3,4] | map(. * 2)", val.Null)
	assertJSON(t, `[2,4,6,8]`, v)

	v = run(t, "[1,2,3,4,5,6] | filter(. < 3 or . > 4)", val.Null)
	assertJSON(t, `[1,2,5,6]`, v)

	v = run(t, `["a","bb","a","c","bb"] | group(.)`, val.Null)
	assertJSON(t, `[{"key":"a","vals":["a","a"]},{"key":"bb","vals":["bb","bb"]},{"key":"c","vals":["c"]}]`, v)
}

func TestCatchReplacesErr(t *testing.T) {
	v := run(t, "[42, 1/0] | map(catch(100))", val.Null)
	assertJSON(t, `[42,100]`, v)
}

func TestErrFlowsThroughPipeToCatch(t *testing.T) {
	v := run(t, "1/0 | catch(0)", val.Null)
	assertJSON(t, `0`, v)
}

func TestErrElementsStayInListLiteral(t *testing.T) {
	v := run(t, "[1/0] | map(is_err())", val.Null)
	assertJSON(t, `[true]`, v)
}

func TestSortRanksErrFirst(t *testing.T) {
	v := run(t, `[bad_fcn(), 'text', true, 123, null, {}, []] | sort(.) | map(typeof())`, val.Null)
	assertJSON(t, `["error","null","bool","number","string","list","map"]`, v)
}

func TestComparisonOperatesOnRawValues(t *testing.T) {
	v := run(t, `1 == 'x'`, val.Null)
	assertJSON(t, `false`, v)

	v = run(t, `[4, 5, 6] | map(. <= 5)`, val.Null)
	assertJSON(t, `[true,true,false]`, v)
}

func TestNotBindsBelowComparison(t *testing.T) {
	v := run(t, "not 1 > 2 or false", val.Null)
	assertJSON(t, `true`, v)
	v = run(t, "not 1 < 2 or false", val.Null)
	assertJSON(t, `false`, v)
}

func TestFilterDropsNonBoolPredicateResults(t *testing.T) {
	v := run(t, "[1, 2] | filter(.)", val.Null)
	assertJSON(t, `[]`, v)
}

func TestFormatStringRendersErrAsJSON(t *testing.T) {
	v := run(t, `'{1/0}'`, val.Null)
	assert.Equal(t, `{"ERROR":"divide by zero"}`, v.Str())
}

func TestMapLiteralComputedAndFormatKeys(t *testing.T) {
	v := run(t, `{['a']: 1, [21*2]: 2}`, val.Null)
	assertJSON(t, `{"a":1,"42":2}`, v)

	v = runJSON(t, `{'a': 1, 'b{.}': 2}`, `42`)
	assertJSON(t, `{"a":1,"b42":2}`, v)
}

func TestZipOnReceiverListOfLists(t *testing.T) {
	v := run(t, "[] | zip()", val.Null)
	assertJSON(t, `[]`, v)

	v = run(t, `[['a','b','c'], [1,2,3,4]] | zip()`, val.Null)
	assertJSON(t, `[["a",1],["b",2],["c",3]]`, v)
}

func TestJoinRendersNonStringsAsJSON(t *testing.T) {
	v := run(t, `['stuff', 1, 'things'] | join(' - ')`, val.Null)
	assert.Equal(t, "stuff - 1 - things", v.Str())
}

func TestFromItemsAcceptsMapsAndPairs(t *testing.T) {
	v := run(t, `{a: 1, b: 2} | items() | from_items()`, val.Null)
	assertJSON(t, `{"a":1,"b":2}`, v)

	v = run(t, `[['a', 1], ['b', 2]] | from_items()`, val.Null)
	assertJSON(t, `{"a":1,"b":2}`, v)
}

func TestToJSONIsMinified(t *testing.T) {
	v := run(t, "{a: 1, b: 2} | to_json()", val.Null)
	assert.Equal(t, `{"a":1,"b":2}`, v.Str())
}

func TestRangeNegativeCountsDown(t *testing.T) {
	v := run(t, "range(-2)", val.Null)
	assertJSON(t, `[0,-1]`, v)
}

func TestLetBindingDoesNotEscapeInnerScope(t *testing.T) {
	v := run(t, "let a = 1 | ([] | map(let a = 2) | a)", val.Null)
	assertJSON(t, `1`, v)
}

func TestMinMax(t *testing.T) {
	v := run(t, "[1,2,3,4] | min()", val.Null)
	assertJSON(t, `1`, v)
	v = run(t, "[1,2,3,4] | max()", val.Null)
	assertJSON(t, `4`, v)

	v = run(t, "[] | min()", val.Null)
	assertJSON(t, `null`, v)
	v = run(t, "[] | max()", val.Null)
	assertJSON(t, `null`, v)
}

func TestMinMaxRequireNumbers(t *testing.T) {
	v := run(t, `['abc'] | max()`, val.Null)
	assert.True(t, v.IsErr())

	v = run(t, `['z', 5] | max()`, val.Null)
	assert.True(t, v.IsErr())

	v = run(t, `[5, 'z'] | min()`, val.Null)
	assert.True(t, v.IsErr())
}

func TestFlattenOneLevel(t *testing.T) {
	v := run(t, "[[1,2], [3,4,5], [], [6]] | flatten()", val.Null)
	assertJSON(t, `[1,2,3,4,5,6]`, v)
}

func TestLinesDropsTrailingEmpty(t *testing.T) {
	v := run(t, `'line 0\n\nline 1\nline 2 \n' | lines()`, val.Null)
	assertJSON(t, `["line 0","","line 1","line 2 "]`, v)
}

func TestIfTernary(t *testing.T) {
	v := run(t, "if(true, 1, 2)", val.Null)
	assertJSON(t, `1`, v)
	v = run(t, "if(false, 1, 2)", val.Null)
	assertJSON(t, `2`, v)
}

func TestRangeDirectionFromStepSign(t *testing.T) {
	v := run(t, "range(5)", val.Null)
	assertJSON(t, `[0,1,2,3,4]`, v)

	v = run(t, "range(3, 0)", val.Null)
	assertJSON(t, `[3,2,1]`, v)

	v = run(t, "range(0, 5, :step -1)", val.Null)
	assertJSON(t, `[]`, v)
}

func TestZipTruncatesToMinLength(t *testing.T) {
	v := run(t, "zip([1,2,3], [4,5])", val.Null)
	assertJSON(t, `[[1,4],[2,5]]`, v)
}

func TestCombinationsEmptyListIsListOfEmptyTuple(t *testing.T) {
	v := run(t, "[] | combinations()", val.Null)
	assertJSON(t, `[[]]`, v)

	v = run(t, "[[1,2],[3,4]] | combinations()", val.Null)
	assertJSON(t, `[[1,3],[1,4],[2,3],[2,4]]`, v)
}

func TestTypeofAndIsPredicates(t *testing.T) {
	v := run(t, "1 | typeof()", val.Null)
	assert.Equal(t, "number", v.Str())

	v = run(t, `"x" | is_string()`, val.Null)
	assertJSON(t, `true`, v)

	v = run(t, `1/0 | is_err()`, val.Null)
	assertJSON(t, `true`, v)
}

func TestFromJSONToJSONRoundTrip(t *testing.T) {
	v := run(t, `'\{"a":1,"b":[1,2]\}' | from_json() | to_json() | from_json()`, val.Null)
	assertJSON(t, `{"a":1,"b":[1,2]}`, v)
}

func TestRecursiveFlattenPreorder(t *testing.T) {
	v := runJSON(t, `recursive_flatten(.children ?? [])`, `{"v":1,"children":[{"v":2,"children":[]},{"v":3,"children":[]}]}`)
	require.True(t, v.IsList())
	assert.Len(t, v.List(), 3)
}
