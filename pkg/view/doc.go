// Package view wires the timeline model, layout engine, interaction
// controller and renderer into a gantt view session.
//
// View types are registered explicitly at startup:
//
//	reg := view.NewRegistry()
//	if err := view.RegisterDefaults(reg); err != nil {
//	    return err
//	}
//	sess, err := reg.Open(view.TypeGantt, cfg, adapter, view.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := sess.Open(ctx); err != nil {
//	    return err
//	}
//	scene := sess.Scene(ctx, render.Viewport{Width: 800, Height: 400})
//
// A [Config] carries the options hosts recognise, zoomLevel and
// enableDragAndDrop, plus layout density and the record field mapping.
package view
