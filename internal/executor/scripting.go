package executor

import (
	"strings"

	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/eval"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// runStatements executes body in order, stopping and propagating the first
// error (including a BREAK/CONTINUE/RETURN control-flow signal, which is an
// *Error of Kind ErrControlFlow - spec §7).
func (e *Executor) runStatements(body []plan.Logical) error {
	for _, stmt := range body {
		if _, err := e.ExecuteLogical(stmt); err != nil {
			return err
		}
	}
	return nil
}

// controlFlowLabel reports whether err is a BREAK/CONTINUE/RETURN signal of
// the given verb, and if so, the label it carries ("" for unlabeled).
func controlFlowLabel(err error, verb string) (label string, ok bool) {
	e, isErr := err.(*yachtsql.Error)
	if !isErr || e.Kind != yachtsql.ErrControlFlow {
		return "", false
	}
	if e.Code == verb {
		return "", true
	}
	if strings.HasPrefix(e.Code, verb+":") {
		return e.Code[len(verb)+1:], true
	}
	return "", false
}

// runLoopBody runs body once, reporting whether the enclosing loop (whose
// own label is loopLabel) should stop iterating, and the error to propagate
// past the loop (nil unless a genuine error, an unmatched-label
// break/continue, or a RETURN occurred).
func (e *Executor) runLoopBody(body []plan.Logical, loopLabel string) (stop bool, propagate error) {
	err := e.runStatements(body)
	if err == nil {
		return false, nil
	}
	if lbl, ok := controlFlowLabel(err, "BREAK"); ok {
		if lbl == "" || lbl == loopLabel {
			return true, nil
		}
		return true, err
	}
	if lbl, ok := controlFlowLabel(err, "CONTINUE"); ok {
		if lbl == "" || lbl == loopLabel {
			return false, nil
		}
		return true, err
	}
	return true, err
}

func (e *Executor) execIf(n *plan.If) error {
	ve := eval.NewValueEvaluator(e.ctx)
	for _, branch := range n.Branches {
		if branch.Condition == nil {
			return e.runStatements(branch.Body)
		}
		v, err := ve.Eval(branch.Condition, yachtsql.Record{})
		if err != nil {
			return err
		}
		if !v.IsNull() && v.Bool() {
			return e.runStatements(branch.Body)
		}
	}
	return nil
}

func (e *Executor) execWhile(n *plan.While) error {
	ve := eval.NewValueEvaluator(e.ctx)
	for {
		v, err := ve.Eval(n.Condition, yachtsql.Record{})
		if err != nil {
			return err
		}
		if v.IsNull() || !v.Bool() {
			return nil
		}
		stop, propagate := e.runLoopBody(n.Body, n.Label)
		if propagate != nil {
			return propagate
		}
		if stop {
			return nil
		}
	}
}

func (e *Executor) execLoop(n *plan.Loop) error {
	for {
		stop, propagate := e.runLoopBody(n.Body, n.Label)
		if propagate != nil {
			return propagate
		}
		if stop {
			return nil
		}
	}
}

func (e *Executor) execBlock(n *plan.Block) error {
	return e.runStatements(n.Body)
}

func (e *Executor) execRepeat(n *plan.Repeat) error {
	ve := eval.NewValueEvaluator(e.ctx)
	for {
		stop, propagate := e.runLoopBody(n.Body, n.Label)
		if propagate != nil {
			return propagate
		}
		if stop {
			return nil
		}
		v, err := ve.Eval(n.Condition, yachtsql.Record{})
		if err != nil {
			return err
		}
		if !v.IsNull() && v.Bool() {
			return nil
		}
	}
}

// execFor binds VarName to a STRUCT of each row of Query in turn, running
// Body once per row (spec §4.F Scripting: "FOR v IN query DO ... END FOR").
func (e *Executor) execFor(n *plan.For) error {
	result, err := e.ExecuteLogical(n.Query)
	if err != nil {
		return err
	}
	names := result.Schema.Names()
	for i := 0; i < result.NumRows(); i++ {
		row := result.Row(i)
		e.ctx.Variables[n.VarName] = yachtsql.NewStruct(names, row.Values)
		stop, propagate := e.runLoopBody(n.Body, n.Label)
		delete(e.ctx.Variables, n.VarName)
		if propagate != nil {
			return propagate
		}
		if stop {
			return nil
		}
	}
	return nil
}

// execReturn evaluates Value (if any), stashes it for the caller to read
// via Executor.returnValue, and raises the RETURN control-flow signal so
// every enclosing loop/block unwinds without intercepting it.
func (e *Executor) execReturn(n *plan.Return) error {
	if n.Value != nil {
		ve := eval.NewValueEvaluator(e.ctx)
		v, err := ve.Eval(n.Value, yachtsql.Record{})
		if err != nil {
			return err
		}
		e.returnValue = v
	}
	return yachtsql.NewReturnSignal()
}

// execRaise evaluates Message (if present) and returns a genuine error (not
// a control-flow signal) so an enclosing TryCatch can intercept it.
func (e *Executor) execRaise(n *plan.Raise) error {
	if n.Message == nil {
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "RAISE")
	}
	ve := eval.NewValueEvaluator(e.ctx)
	v, err := ve.Eval(n.Message, yachtsql.Record{})
	if err != nil {
		return err
	}
	return yachtsql.NewError(yachtsql.ErrInvalidQuery, "%s", v.String_())
}

// execTryCatch runs Try, routing to Catch.Body only on a genuine error
// (RAISE or any runtime failure) - a BREAK/CONTINUE/RETURN control-flow
// signal passes through uncaught.
func (e *Executor) execTryCatch(n *plan.TryCatch) error {
	err := e.runStatements(n.Try)
	if err == nil {
		return nil
	}
	if yachtsql.KindOf(err) == yachtsql.ErrControlFlow {
		return err
	}
	e.ctx.Variables["ERROR_MESSAGE"] = yachtsql.NewString(err.Error())
	return e.runStatements(n.Catch.Body)
}

// execExecuteImmediate is a YachtSQL extension's limited form of dynamic
// SQL: since this module has no SQL parser of its own (the binder produces
// plan.Logical directly), only a literal SQL string naming nothing new
// cannot be re-entered here; this records the attempt as unsupported rather
// than silently doing nothing.
func (e *Executor) execExecuteImmediate(n *plan.ExecuteImmediate) error {
	return yachtsql.NewError(yachtsql.ErrUnsupported, "EXECUTE IMMEDIATE requires a SQL front end outside this module's scope")
}

func (e *Executor) execDeclare(n *plan.Declare) error {
	var value yachtsql.Value = yachtsql.Null
	if n.Default != nil {
		ve := eval.NewValueEvaluator(e.ctx)
		v, err := ve.Eval(n.Default, yachtsql.Record{})
		if err != nil {
			return err
		}
		value = v
	}
	for _, name := range n.Names {
		e.ctx.Variables[name] = value
	}
	return nil
}

func (e *Executor) execSetVariable(n *plan.SetVariable) error {
	ve := eval.NewValueEvaluator(e.ctx)
	for i, name := range n.Names {
		v, err := ve.Eval(n.Values[i], yachtsql.Record{})
		if err != nil {
			return err
		}
		e.ctx.Variables[name] = v
	}
	return nil
}
