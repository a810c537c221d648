package ast

import (
	"fmt"

	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// FromProto converts the canonical expression proto into an Expr tree,
// keeping node ids.
func FromProto(pe *exprpb.Expr) (*Expr, error) {
	if pe == nil {
		return nil, fmt.Errorf("nil expression")
	}
	e := &Expr{ID: pe.GetId()}
	switch k := pe.GetExprKind().(type) {
	case *exprpb.Expr_ConstExpr:
		lit, err := constantFromProto(k.ConstExpr)
		if err != nil {
			return nil, fmt.Errorf("expression %d: %w", pe.GetId(), err)
		}
		e.Kind, e.Literal = LiteralKind, lit
	case *exprpb.Expr_IdentExpr:
		e.Kind, e.Name = IdentKind, k.IdentExpr.GetName()
	case *exprpb.Expr_SelectExpr:
		op, err := FromProto(k.SelectExpr.GetOperand())
		if err != nil {
			return nil, err
		}
		e.Kind, e.Operand, e.Name, e.TestOnly = SelectKind, op, k.SelectExpr.GetField(), k.SelectExpr.GetTestOnly()
	case *exprpb.Expr_CallExpr:
		e.Kind, e.Name = CallKind, k.CallExpr.GetFunction()
		if t := k.CallExpr.GetTarget(); t != nil {
			target, err := FromProto(t)
			if err != nil {
				return nil, err
			}
			e.Operand = target
		}
		args, err := listFromProto(k.CallExpr.GetArgs())
		if err != nil {
			return nil, err
		}
		e.Args = args
	case *exprpb.Expr_ListExpr:
		elems, err := listFromProto(k.ListExpr.GetElements())
		if err != nil {
			return nil, err
		}
		e.Kind, e.Args = ListKind, elems
	case *exprpb.Expr_StructExpr:
		s := k.StructExpr
		e.Kind = MapKind
		if s.GetMessageName() != "" {
			e.Kind, e.Name = StructKind, s.GetMessageName()
		}
		for _, pen := range s.GetEntries() {
			en, err := entryFromProto(pen)
			if err != nil {
				return nil, err
			}
			e.Entries = append(e.Entries, en)
		}
	case *exprpb.Expr_ComprehensionExpr:
		c, err := comprehensionFromProto(k.ComprehensionExpr)
		if err != nil {
			return nil, err
		}
		e.Kind, e.Comprehension = ComprehensionKind, c
	default:
		return nil, fmt.Errorf("expression %d: unsupported expression kind %T", pe.GetId(), k)
	}
	return e, nil
}

func listFromProto(pes []*exprpb.Expr) ([]*Expr, error) {
	if len(pes) == 0 {
		return nil, nil
	}
	out := make([]*Expr, len(pes))
	for i, pe := range pes {
		e, err := FromProto(pe)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func entryFromProto(pen *exprpb.Expr_CreateStruct_Entry) (*Entry, error) {
	val, err := FromProto(pen.GetValue())
	if err != nil {
		return nil, err
	}
	en := &Entry{ID: pen.GetId(), Value: val}
	switch k := pen.GetKeyKind().(type) {
	case *exprpb.Expr_CreateStruct_Entry_FieldKey:
		en.Field = k.FieldKey
	case *exprpb.Expr_CreateStruct_Entry_MapKey:
		key, err := FromProto(k.MapKey)
		if err != nil {
			return nil, err
		}
		en.Key = key
	default:
		return nil, fmt.Errorf("entry %d: missing key", pen.GetId())
	}
	return en, nil
}

func comprehensionFromProto(pc *exprpb.Expr_Comprehension) (*Comprehension, error) {
	parts := []*exprpb.Expr{pc.GetIterRange(), pc.GetAccuInit(), pc.GetLoopCondition(), pc.GetLoopStep(), pc.GetResult()}
	conv := make([]*Expr, len(parts))
	for i, p := range parts {
		e, err := FromProto(p)
		if err != nil {
			return nil, err
		}
		conv[i] = e
	}
	return &Comprehension{
		IterVar:       pc.GetIterVar(),
		IterRange:     conv[0],
		AccuVar:       pc.GetAccuVar(),
		AccuInit:      conv[1],
		LoopCondition: conv[2],
		LoopStep:      conv[3],
		Result:        conv[4],
	}, nil
}

func constantFromProto(c *exprpb.Constant) (value.Value, error) {
	switch k := c.GetConstantKind().(type) {
	case *exprpb.Constant_NullValue:
		return value.NullValue, nil
	case *exprpb.Constant_BoolValue:
		return value.Bool(k.BoolValue), nil
	case *exprpb.Constant_Int64Value:
		return value.Int(k.Int64Value), nil
	case *exprpb.Constant_Uint64Value:
		return value.Uint(k.Uint64Value), nil
	case *exprpb.Constant_DoubleValue:
		return value.Double(k.DoubleValue), nil
	case *exprpb.Constant_StringValue:
		return value.String(k.StringValue), nil
	case *exprpb.Constant_BytesValue:
		return value.Bytes(k.BytesValue), nil
	}
	return nil, fmt.Errorf("unsupported constant %T", c.GetConstantKind())
}

// ToProto converts an Expr tree back into the canonical expression proto.
func ToProto(e *Expr) (*exprpb.Expr, error) {
	pe := &exprpb.Expr{Id: e.ID}
	switch e.Kind {
	case LiteralKind:
		c, err := constantToProto(e.Literal)
		if err != nil {
			return nil, fmt.Errorf("expression %d: %w", e.ID, err)
		}
		pe.ExprKind = &exprpb.Expr_ConstExpr{ConstExpr: c}
	case IdentKind:
		pe.ExprKind = &exprpb.Expr_IdentExpr{IdentExpr: &exprpb.Expr_Ident{Name: e.Name}}
	case SelectKind:
		op, err := ToProto(e.Operand)
		if err != nil {
			return nil, err
		}
		pe.ExprKind = &exprpb.Expr_SelectExpr{SelectExpr: &exprpb.Expr_Select{Operand: op, Field: e.Name, TestOnly: e.TestOnly}}
	case CallKind:
		call := &exprpb.Expr_Call{Function: e.Name}
		if e.Operand != nil {
			target, err := ToProto(e.Operand)
			if err != nil {
				return nil, err
			}
			call.Target = target
		}
		args, err := listToProto(e.Args)
		if err != nil {
			return nil, err
		}
		call.Args = args
		pe.ExprKind = &exprpb.Expr_CallExpr{CallExpr: call}
	case ListKind:
		elems, err := listToProto(e.Args)
		if err != nil {
			return nil, err
		}
		pe.ExprKind = &exprpb.Expr_ListExpr{ListExpr: &exprpb.Expr_CreateList{Elements: elems}}
	case MapKind, StructKind:
		s := &exprpb.Expr_CreateStruct{MessageName: e.Name}
		for _, en := range e.Entries {
			pen, err := entryToProto(en)
			if err != nil {
				return nil, err
			}
			s.Entries = append(s.Entries, pen)
		}
		pe.ExprKind = &exprpb.Expr_StructExpr{StructExpr: s}
	case ComprehensionKind:
		c := e.Comprehension
		parts := []*Expr{c.IterRange, c.AccuInit, c.LoopCondition, c.LoopStep, c.Result}
		conv, err := listToProto(parts)
		if err != nil {
			return nil, err
		}
		pe.ExprKind = &exprpb.Expr_ComprehensionExpr{ComprehensionExpr: &exprpb.Expr_Comprehension{
			IterVar:       c.IterVar,
			IterRange:     conv[0],
			AccuVar:       c.AccuVar,
			AccuInit:      conv[1],
			LoopCondition: conv[2],
			LoopStep:      conv[3],
			Result:        conv[4],
		}}
	default:
		return nil, fmt.Errorf("expression %d: unsupported kind %s", e.ID, e.Kind)
	}
	return pe, nil
}

func listToProto(es []*Expr) ([]*exprpb.Expr, error) {
	out := make([]*exprpb.Expr, len(es))
	for i, e := range es {
		pe, err := ToProto(e)
		if err != nil {
			return nil, err
		}
		out[i] = pe
	}
	return out, nil
}

func entryToProto(en *Entry) (*exprpb.Expr_CreateStruct_Entry, error) {
	val, err := ToProto(en.Value)
	if err != nil {
		return nil, err
	}
	pen := &exprpb.Expr_CreateStruct_Entry{Id: en.ID, Value: val}
	if en.Key == nil {
		pen.KeyKind = &exprpb.Expr_CreateStruct_Entry_FieldKey{FieldKey: en.Field}
		return pen, nil
	}
	key, err := ToProto(en.Key)
	if err != nil {
		return nil, err
	}
	pen.KeyKind = &exprpb.Expr_CreateStruct_Entry_MapKey{MapKey: key}
	return pen, nil
}

func constantToProto(v value.Value) (*exprpb.Constant, error) {
	c := &exprpb.Constant{}
	switch v := v.(type) {
	case value.Null:
		c.ConstantKind = &exprpb.Constant_NullValue{NullValue: structpb.NullValue_NULL_VALUE}
	case value.Bool:
		c.ConstantKind = &exprpb.Constant_BoolValue{BoolValue: bool(v)}
	case value.Int:
		c.ConstantKind = &exprpb.Constant_Int64Value{Int64Value: int64(v)}
	case value.Uint:
		c.ConstantKind = &exprpb.Constant_Uint64Value{Uint64Value: uint64(v)}
	case value.Double:
		c.ConstantKind = &exprpb.Constant_DoubleValue{DoubleValue: float64(v)}
	case value.String:
		c.ConstantKind = &exprpb.Constant_StringValue{StringValue: string(v)}
	case value.Bytes:
		c.ConstantKind = &exprpb.Constant_BytesValue{BytesValue: []byte(v)}
	default:
		return nil, fmt.Errorf("value %v cannot be a literal", v)
	}
	return c, nil
}
